package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/store"
	"github.com/spf13/cobra"
)

var (
	modelsDataDir string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored models",
	Long: `Manage fitted models in the data directory: list them with their
training metadata, inspect a single model, and clean old ones by age or
count. Models are what train, resume and predict operate on.`,
}

var listModelsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored models",
	Long:  `Display all models with their algorithm, topology, iteration count, loss and disk size.`,
	RunE:  runListModels,
}

var showModelCmd = &cobra.Command{
	Use:   "show [model-id]",
	Short: "Show details for one model",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowModel,
}

var cleanModelsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old models",
	Long: `Delete stored models based on retention policy. Keep only the most
recent N models, delete models older than N days, or both.`,
	RunE: runCleanModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.AddCommand(listModelsCmd)
	modelsCmd.AddCommand(showModelCmd)
	modelsCmd.AddCommand(cleanModelsCmd)

	modelsCmd.PersistentFlags().StringVar(&modelsDataDir, "data-dir", "./data", "Base directory for model storage")

	cleanModelsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the most recent N models (0 = keep all)")
	cleanModelsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete models older than N days (0 = no age limit)")
	cleanModelsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListModels(cmd *cobra.Command, args []string) error {
	modelStore, err := store.NewFSStore(modelsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	infos, err := modelStore.ListModels()
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No models found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL ID\tTIMESTAMP\tALGORITHM\tLAYERS\tITERATION\tLOSS\tSIZE")
	fmt.Fprintln(w, "--------\t---------\t---------\t------\t---------\t----\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(modelsDataDir, "models", info.ModelID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%.6f\t%s\n",
			truncateID(info.ModelID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Algorithm,
			info.NodeList,
			info.Iteration,
			info.Loss,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal models: %d\n", len(infos))
	return nil
}

func runShowModel(cmd *cobra.Command, args []string) error {
	modelID := args[0]

	modelStore, err := store.NewFSStore(modelsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	artifact, err := modelStore.LoadModel(modelID)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	fmt.Printf("Model: %s\n", artifact.ModelID)
	fmt.Printf("Saved: %s\n", artifact.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Println()

	fmt.Println("Training:")
	fmt.Printf("  Dataset: %s\n", artifact.Config.DataPath)
	fmt.Printf("  Algorithm: %s\n", artifact.Config.Algorithm)
	fmt.Printf("  Activation: %s\n", artifact.Config.Activation)
	fmt.Printf("  Classifier: %t\n", artifact.Config.Classifier)
	fmt.Printf("  Bias: %t\n", artifact.Config.Bias)
	fmt.Printf("  Max Iterations: %d\n", artifact.Config.MaxIters)
	fmt.Printf("  Learning Rate: %g\n", artifact.Config.LearningRate)
	fmt.Println()

	fmt.Println("Fitted state:")
	fmt.Printf("  Layers: %v\n", artifact.NodeList)
	fmt.Printf("  Weights: %d\n", len(artifact.Weights))
	fmt.Printf("  Output Activation: %s\n", artifact.OutputActivation)
	fmt.Printf("  Loss: %.6f\n", artifact.Loss)
	fmt.Printf("  Iteration: %d\n", artifact.Iteration)

	// The trace is optional; report it when present
	reader, err := store.NewTraceReader(modelsDataDir, modelID)
	if err == nil {
		defer reader.Close()
		entries, err := reader.ReadAll()
		if err == nil && len(entries) > 0 {
			first := entries[0].Fitness
			last := entries[len(entries)-1].Fitness
			fmt.Printf("  Trace: %d entries (%.6f -> %.6f)\n", len(entries), first, last)
		}
	}

	return nil
}

func runCleanModels(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	modelStore, err := store.NewFSStore(modelsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	infos, err := modelStore.ListModels()
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No models to clean.")
		return nil
	}

	toDelete := selectModelsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No models match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d model(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, iteration %d, %s)\n",
			truncateID(info.ModelID),
			info.Algorithm,
			info.Iteration,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := modelStore.DeleteModel(info.ModelID); err != nil {
			slog.Error("Failed to delete model", "model_id", info.ModelID, "error", err)
			failed++
		} else {
			slog.Info("Deleted model", "model_id", info.ModelID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d model(s), %d failed.\n", deleted, failed)
	return nil
}

// selectModelsForDeletion applies the retention policy: every model older
// than the age cutoff goes, and beyond keepLast the oldest go until only
// the most recent keepLast remain. A model is listed at most once.
func selectModelsForDeletion(infos []store.ModelInfo, keepLast, olderThanDays int) []store.ModelInfo {
	marked := make(map[string]bool)
	var toDelete []store.ModelInfo

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) && !marked[info.ModelID] {
				marked[info.ModelID] = true
				toDelete = append(toDelete, info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.ModelInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})
		for _, info := range sorted[:len(sorted)-keepLast] {
			if !marked[info.ModelID] {
				marked[info.ModelID] = true
				toDelete = append(toDelete, info)
			}
		}
	}

	return toDelete
}

// truncateID shortens UUIDs for table display.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize sums the file sizes under a model directory.
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes renders a byte count with a binary-prefix unit.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
