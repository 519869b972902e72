// Package ui renders the server's HTML pages. The pages are hand-built
// templ components: plain functions over view data, no template files.
package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// JobListItem is one row on the index page.
type JobListItem struct {
	ID         string
	State      string
	DataPath   string
	Algorithm  string
	Iterations int
	Loss       float64
	StartTime  time.Time
	EndTime    *time.Time
	Error      string
}

// JobDetailView is the data behind a job detail page.
type JobDetailView struct {
	ID          string
	State       string
	DataPath    string
	Algorithm   string
	HiddenNodes []int
	Activation  string
	Classifier  bool
	MaxIters    int
	Iterations  int
	Loss        float64
	StartTime   time.Time
	EndTime     *time.Time
	Error       string
}

// CreateFormValues carries the create form's fields. Numeric fields stay
// strings so a rejected submission is echoed back exactly as typed.
type CreateFormValues struct {
	DataPath     string
	HasHeader    bool
	Algorithm    string
	HiddenNodes  string
	Activation   string
	Classifier   bool
	Bias         bool
	MaxIters     string
	LearningRate string
	PopSize      string
	MutationProb string
	Seed         string
}

// DefaultCreateFormValues returns the form prefilled with the training
// defaults.
func DefaultCreateFormValues() CreateFormValues {
	return CreateFormValues{
		Algorithm:    "random_hill_climb",
		Activation:   "relu",
		Classifier:   true,
		Bias:         true,
		MaxIters:     "100",
		LearningRate: "0.1",
		PopSize:      "200",
		MutationProb: "0.1",
	}
}

const pageStyle = `
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 60rem; padding: 0 1rem; color: #1a1a2e; }
h1 { font-size: 1.4rem; }
nav a { margin-right: 1rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; }
dl { display: grid; grid-template-columns: 12rem 1fr; row-gap: 0.3rem; }
dt { font-weight: 600; }
dd { margin: 0; }
form label { display: block; margin: 0.6rem 0 0.2rem; font-weight: 600; }
form input[type=text], form input[type=number], form select { width: 20rem; padding: 0.3rem; }
button { margin-top: 1rem; padding: 0.4rem 1.2rem; }
.error { background: #fde8e8; border: 1px solid #c53030; color: #c53030; padding: 0.6rem 1rem; margin-bottom: 1rem; }
.state-pending { color: #996b00; }
.state-running { color: #1d4ed8; }
.state-completed { color: #15803d; }
.state-failed { color: #c53030; }
.state-cancelled { color: #6b7280; }
`

// page wraps a body-rendering function in the shared document shell.
func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
<nav><a href="/">Jobs</a><a href="/create">New Job</a></nav>
`, templ.EscapeString(title), pageStyle)
		if err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// shortID abbreviates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// selectedAttr marks the matching option of a select element.
func selectedAttr(value, current string) string {
	if value == current {
		return " selected"
	}
	return ""
}

// checkedAttr marks a checkbox as set.
func checkedAttr(on bool) string {
	if on {
		return " checked"
	}
	return ""
}
