package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/espforge/espforge/config"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List configured boards",
	Long: `List the boards configured for this project with their build
environments and chips.

Example:
  espforge boards              # List all boards
  espforge boards --json       # Output as JSON`,
	RunE: runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)

	boardsCmd.Flags().Bool("json", false, "output in JSON format")
}

func runBoards(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(cfg.Boards))
	for key := range cfg.Boards {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		if jsonOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No boards configured.")
		}
		return nil
	}

	if jsonOutput {
		return printBoardsJSON(cfg, keys)
	}

	return printBoardsTable(cfg, keys)
}

func printBoardsTable(cfg *config.Config, keys []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "KEY\tNAME\tENV\tCHIP\tGROUP")
	fmt.Fprintln(w, "---\t----\t---\t----\t-----")
	for _, key := range keys {
		board := cfg.Boards[key]
		env := board.Env
		if env == "" {
			env = key
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			key,
			truncate(board.Name, 30),
			env,
			board.Chip,
			board.Group,
		)
	}

	return w.Flush()
}

func printBoardsJSON(cfg *config.Config, keys []string) error {
	type BoardData struct {
		Key         string `json:"key"`
		Name        string `json:"name,omitempty"`
		Env         string `json:"env"`
		Chip        string `json:"chip,omitempty"`
		Description string `json:"description,omitempty"`
		Group       string `json:"group,omitempty"`
	}

	var data []BoardData
	for _, key := range keys {
		board := cfg.Boards[key]
		env := board.Env
		if env == "" {
			env = key
		}
		data = append(data, BoardData{
			Key:         key,
			Name:        board.Name,
			Env:         env,
			Chip:        board.Chip,
			Description: board.Description,
			Group:       board.Group,
		})
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
