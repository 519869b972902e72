package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries a running mlrose server over its REST API. Without arguments
every training job is listed; with a job ID the full status of that job is
shown, including progress and throughput.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(serverURL + "/api/v1/jobs")
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// fetchJSON gets url and decodes the body into out. Non-200 responses come
// back as errors carrying the server's message.
func fetchJSON(url string, out any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(url string) error {
	// Decoded as generic maps: the CLI only prints, it does not need the
	// server's job type.
	var jobs []map[string]interface{}
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config, ok := job["config"].(map[string]interface{}); ok {
			fmt.Printf("  Dataset: %s\n", config["dataPath"])
			fmt.Printf("  Algorithm: %s\n", config["algorithm"])
		}
		if loss, ok := job["loss"].(float64); ok && loss > 0 {
			fmt.Printf("  Loss: %.4f\n", loss)
		}
		if iters, ok := job["iterations"].(float64); ok && iters > 0 {
			fmt.Printf("  Iterations: %.0f\n", iters)
		}
		fmt.Println()
	}
	return nil
}

func getJobStatus(url, jobID string) error {
	var status map[string]interface{}
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		fmt.Printf("  Dataset: %s\n", config["dataPath"])
		fmt.Printf("  Algorithm: %s\n", config["algorithm"])
		if hidden, ok := config["hiddenNodes"]; ok {
			fmt.Printf("  Hidden Layers: %v\n", hidden)
		}
		fmt.Printf("  Classifier: %v\n", config["classifier"])
		fmt.Printf("  Max Iterations: %v\n", config["maxIters"])
		fmt.Printf("  Learning Rate: %v\n", config["learningRate"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	if loss, ok := status["loss"].(float64); ok && loss > 0 {
		fmt.Printf("  Loss: %.4f\n", loss)
	}
	if iters, ok := status["iterations"].(float64); ok {
		fmt.Printf("  Iterations: %.0f\n", iters)
	}
	if elapsed, ok := status["elapsed"].(float64); ok {
		d := time.Duration(elapsed * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", d.Round(time.Millisecond))
	}
	if ips, ok := status["ips"].(float64); ok && ips > 0 {
		fmt.Printf("  Throughput: %.0f iters/sec\n", ips)
	}
	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}
	return nil
}
