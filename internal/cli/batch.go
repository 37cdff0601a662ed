package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwidowglobal/dossier/internal/model"
)

var batchWorkers int

// batchCmd researches multiple subjects from a file
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Research multiple subjects from a file",
	Long: `Batch reads subjects from a file, one per line:

  company|<name>|<state>
  person|<name>|<company>|<state>

Trailing fields may be omitted; blank lines and lines starting with #
are ignored. Subjects are processed concurrently; a failed subject does
not abort the rest.

Example:
  dossier batch subjects.txt
  dossier batch subjects.txt --workers 4 --output ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 2, "concurrent subjects")
	batchCmd.Flags().StringVar(&outputDir, "output", "", "output directory (default from config)")
	batchCmd.Flags().StringVar(&outputFormat, "format", "", "output format: json, text, or both")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable response caching")
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate LLM narrative summaries")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	subjects, err := readSubjects(args[0])
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		return fmt.Errorf("no subjects in %s", args[0])
	}

	p, err := buildPipeline()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Researching %d subjects with %d workers\n", len(subjects), batchWorkers)

	results := p.ResearchBatch(context.Background(), subjects, batchWorkers)

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s %q: %v\n", r.Subject.Kind, r.Subject.Name, r.Err)
			continue
		}
		if err := p.RenderDossier(r.Dossier); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s %q: %v\n", r.Subject.Kind, r.Subject.Name, err)
			continue
		}
		succeeded++
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d succeeded, %d failed\n", succeeded, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d subjects failed", failed, len(results))
	}
	return nil
}

// readSubjects parses the batch file
func readSubjects(path string) ([]model.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subjects file: %w", err)
	}
	defer f.Close()

	var subjects []model.Subject
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		subject, err := parseSubjectLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		subjects = append(subjects, subject)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subjects file: %w", err)
	}
	return subjects, nil
}

// parseSubjectLine parses "company|name|state" or
// "person|name|company|state"
func parseSubjectLine(line string) (model.Subject, error) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) < 2 || parts[1] == "" {
		return model.Subject{}, fmt.Errorf("expected kind|name[...], got %q", line)
	}

	switch parts[0] {
	case "company":
		subject := model.Subject{Kind: model.SubjectCompany, Name: parts[1]}
		if len(parts) > 2 {
			subject.State = parts[2]
		}
		return subject, nil
	case "person":
		subject := model.Subject{Kind: model.SubjectPerson, Name: parts[1]}
		if len(parts) > 2 {
			subject.Company = parts[2]
		}
		if len(parts) > 3 {
			subject.State = parts[3]
		}
		return subject, nil
	default:
		return model.Subject{}, fmt.Errorf("unknown subject kind %q", parts[0])
	}
}
