package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var algorithmOptions = []string{
	"random_hill_climb",
	"simulated_annealing",
	"genetic_alg",
	"gradient_descent",
	"mayfly",
}

var activationOptions = []string{"relu", "sigmoid", "tanh", "identity"}

// JobList renders the index page with one row per job.
func JobList(jobs []JobListItem) templ.Component {
	return page("Training Jobs", func(w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Training Jobs</h1>\n"); err != nil {
			return err
		}
		if len(jobs) == 0 {
			_, err := io.WriteString(w, `<p>No jobs yet. <a href="/create">Start one.</a></p>`+"\n")
			return err
		}

		if _, err := io.WriteString(w, "<table>\n<tr><th>Job</th><th>State</th><th>Dataset</th><th>Algorithm</th><th>Iterations</th><th>Loss</th><th>Started</th></tr>\n"); err != nil {
			return err
		}
		for _, job := range jobs {
			_, err := fmt.Fprintf(w,
				`<tr><td><a href="/jobs/%s">%s</a></td><td class="state-%s">%s</td><td>%s</td><td>%s</td><td>%d</td><td>%.6g</td><td>%s</td></tr>`+"\n",
				templ.EscapeString(job.ID),
				templ.EscapeString(shortID(job.ID)),
				templ.EscapeString(job.State),
				templ.EscapeString(job.State),
				templ.EscapeString(job.DataPath),
				templ.EscapeString(job.Algorithm),
				job.Iterations,
				job.Loss,
				formatTime(job.StartTime),
			)
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>\n")
		return err
	})
}

// JobDetail renders one job's page. Running jobs subscribe to the SSE
// stream and update in place; finished jobs render statically.
func JobDetail(view JobDetailView) templ.Component {
	return page("Job "+shortID(view.ID), func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>Job %s</h1>\n", templ.EscapeString(shortID(view.ID))); err != nil {
			return err
		}

		if view.Error != "" {
			if _, err := fmt.Fprintf(w, `<div class="error">%s</div>`+"\n", templ.EscapeString(view.Error)); err != nil {
				return err
			}
		}

		mode := "regression"
		if view.Classifier {
			mode = "classification"
		}
		ended := "&ndash;"
		if view.EndTime != nil {
			ended = formatTime(*view.EndTime)
		}

		_, err := fmt.Fprintf(w, `<dl>
<dt>State</dt><dd id="job-state" class="state-%s">%s</dd>
<dt>Dataset</dt><dd>%s</dd>
<dt>Algorithm</dt><dd>%s</dd>
<dt>Hidden nodes</dt><dd>%s</dd>
<dt>Activation</dt><dd>%s</dd>
<dt>Mode</dt><dd>%s</dd>
<dt>Iterations</dt><dd><span id="job-iterations">%d</span> / %d</dd>
<dt>Loss</dt><dd id="job-loss">%.6g</dd>
<dt>Speed</dt><dd><span id="job-ips">&ndash;</span> it/s</dd>
<dt>Started</dt><dd>%s</dd>
<dt>Ended</dt><dd>%s</dd>
</dl>
`,
			templ.EscapeString(view.State),
			templ.EscapeString(view.State),
			templ.EscapeString(view.DataPath),
			templ.EscapeString(view.Algorithm),
			templ.EscapeString(formatNodes(view.HiddenNodes)),
			templ.EscapeString(view.Activation),
			mode,
			view.Iterations,
			view.MaxIters,
			view.Loss,
			formatTime(view.StartTime),
			ended,
		)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<p><a href="/api/v1/jobs/%s/model">Model JSON</a> &middot; <a href="/api/v1/jobs/%s/curve">Fitness curve</a></p>`+"\n",
			templ.EscapeString(view.ID), templ.EscapeString(view.ID)); err != nil {
			return err
		}

		if view.State != "pending" && view.State != "running" {
			return nil
		}

		_, err = fmt.Fprintf(w, `<script>
const es = new EventSource("/api/v1/jobs/%s/stream");
es.onmessage = (e) => {
  const ev = JSON.parse(e.data);
  document.getElementById("job-state").textContent = ev.state;
  document.getElementById("job-state").className = "state-" + ev.state;
  document.getElementById("job-iterations").textContent = ev.iterations;
  document.getElementById("job-loss").textContent = ev.loss.toPrecision(6);
  document.getElementById("job-ips").textContent = ev.ips.toFixed(1);
  if (ev.state === "completed" || ev.state === "failed" || ev.state === "cancelled") {
    es.close();
    window.location.reload();
  }
};
</script>
`, templ.EscapeString(view.ID))
		return err
	})
}

// CreateForm renders the new-job form, optionally with an error banner and
// the previously submitted values.
func CreateForm(values CreateFormValues, errMsg string) templ.Component {
	return page("New Training Job", func(w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>New Training Job</h1>\n"); err != nil {
			return err
		}
		if errMsg != "" {
			if _, err := fmt.Fprintf(w, `<div class="error">%s</div>`+"\n", templ.EscapeString(errMsg)); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, `<form method="post" action="/create">
<label for="dataPath">Dataset path (CSV)</label>
<input type="text" id="dataPath" name="dataPath" value="%s">
<label><input type="checkbox" name="hasHeader"%s> First row is a header</label>
`, templ.EscapeString(values.DataPath), checkedAttr(values.HasHeader)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<label for="algorithm">Algorithm</label>
<select id="algorithm" name="algorithm">
`); err != nil {
			return err
		}
		for _, alg := range algorithmOptions {
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`+"\n", alg, selectedAttr(alg, values.Algorithm), alg); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</select>\n"); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<label for="hiddenNodes">Hidden nodes (comma separated)</label>
<input type="text" id="hiddenNodes" name="hiddenNodes" value="%s" placeholder="e.g. 16,8">
`, templ.EscapeString(values.HiddenNodes)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<label for="activation">Activation</label>
<select id="activation" name="activation">
`); err != nil {
			return err
		}
		for _, act := range activationOptions {
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`+"\n", act, selectedAttr(act, values.Activation), act); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</select>\n"); err != nil {
			return err
		}

		_, err := fmt.Fprintf(w, `<label><input type="checkbox" name="classifier"%s> Classifier</label>
<label><input type="checkbox" name="bias"%s> Bias node</label>
<label for="maxIters">Max iterations</label>
<input type="number" id="maxIters" name="maxIters" value="%s" min="1">
<label for="learningRate">Learning rate</label>
<input type="number" id="learningRate" name="learningRate" value="%s" step="any" min="0">
<label for="popSize">Population size</label>
<input type="number" id="popSize" name="popSize" value="%s" min="2">
<label for="mutationProb">Mutation probability</label>
<input type="number" id="mutationProb" name="mutationProb" value="%s" step="any" min="0" max="1">
<label for="seed">Random seed (0 = from clock)</label>
<input type="number" id="seed" name="seed" value="%s">
<button type="submit">Start Training</button>
</form>
`,
			checkedAttr(values.Classifier),
			checkedAttr(values.Bias),
			templ.EscapeString(values.MaxIters),
			templ.EscapeString(values.LearningRate),
			templ.EscapeString(values.PopSize),
			templ.EscapeString(values.MutationProb),
			templ.EscapeString(values.Seed),
		)
		return err
	})
}

// formatNodes renders hidden layer sizes for display.
func formatNodes(nodes []int) string {
	if len(nodes) == 0 {
		return "none"
	}
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
