package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/minerva/internal/catalog"
	"github.com/p-n-ai/minerva/internal/export"
	"github.com/p-n-ai/minerva/internal/platform/config"
	"github.com/p-n-ai/minerva/internal/platform/database"
	"github.com/p-n-ai/minerva/internal/prompt"
	"github.com/p-n-ai/minerva/internal/reflow"
	"github.com/p-n-ai/minerva/internal/topics"
	"github.com/p-n-ai/minerva/internal/tutor"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "minervactl",
		Short:        "Minerva tutor tooling",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("catalog", "", "Path to a catalog YAML file (overrides MINERVA_CATALOG_PATH)")

	root.AddCommand(
		topicsCmd(),
		reflowCmd(),
		promptCmd(),
		exportCmd(),
		statsCmd(),
	)
	return root
}

// loadCatalog resolves --catalog, then MINERVA_CATALOG_PATH, then the
// built-in catalog.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = os.Getenv("MINERVA_CATALOG_PATH")
	}
	return catalog.Load(path)
}

// readInput reads the named file, or stdin when no file is given or the
// name is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func extractWithPolicy(cmd *cobra.Command, text string) ([]string, error) {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return nil, err
	}
	name, _ := cmd.Flags().GetString("policy")
	policy, ok := cat.Policy(name)
	if !ok {
		return nil, fmt.Errorf("unknown policy %q", name)
	}
	return topics.Extract(text, policy), nil
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics [file]",
		Short: "Extract topics from generated markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			list, err := extractWithPolicy(cmd, text)
			if err != nil {
				return err
			}
			for _, t := range list {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	cmd.Flags().String("policy", catalog.PolicyCurriculum, "Extraction policy (curriculum or teaching)")
	return cmd
}

func reflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflow [file]",
		Short: "Insert markdown spacing after headers and list items",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("variant")
			v, ok := reflow.ParseVariant(name)
			if !ok {
				return fmt.Errorf("unknown variant %q", name)
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			f := reflow.New(v)
			if v == reflow.Teaching {
				cat, err := loadCatalog(cmd)
				if err != nil {
					return err
				}
				f = reflow.NewWithSections(cat.TeachingSections())
			}
			fmt.Fprint(cmd.OutOrStdout(), f.Format(text))
			return nil
		},
	}
	cmd.Flags().String("variant", "curriculum", "Formatter variant (curriculum or teaching)")
	return cmd
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the prompts sent to the model",
	}

	curriculum := &cobra.Command{
		Use:   "curriculum",
		Short: "Render the curriculum prompt for a student profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			knowledge, _ := cmd.Flags().GetString("knowledge")
			experience, _ := cmd.Flags().GetString("experience")
			class, _ := cmd.Flags().GetString("class")
			scores, _ := cmd.Flags().GetString("test-scores")
			grades, _ := cmd.Flags().GetString("grades")
			subjects, _ := cmd.Flags().GetString("subjects")
			goals, _ := cmd.Flags().GetString("goals")

			p, err := prompt.ProfileRequest{
				PriorKnowledge:  knowledge,
				ExperienceLevel: prompt.ExperienceLevel(experience),
				GradeOrClass:    class,
				TestScores:      scores,
				Grades:          grades,
				Subjects:        prompt.SplitSubjects(subjects),
				LearningGoals:   goals,
			}.Normalize().Validate(cat.ExperienceLevels())
			if err != nil {
				return fmt.Errorf("%w (levels: %s)", err, strings.Join(cat.ExperienceLevels(), "; "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.BuildCurriculumPrompt(p))
			return nil
		},
	}
	curriculum.Flags().String("knowledge", "", "Previous knowledge")
	curriculum.Flags().String("experience", "", "Experience level, one of the catalog's experience levels")
	curriculum.Flags().String("class", "", "Grade or class")
	curriculum.Flags().String("test-scores", "", "Recent test scores")
	curriculum.Flags().String("grades", "", "Recent grades")
	curriculum.Flags().String("subjects", "", "Comma separated subjects")
	curriculum.Flags().String("goals", "", "Learning goals")

	teach := &cobra.Command{
		Use:   "teach",
		Short: "Render the lesson prompt for a topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			topic, _ := cmd.Flags().GetString("topic")
			level, _ := cmd.Flags().GetString("level")
			extra, _ := cmd.Flags().GetString("context")

			req, err := prompt.TopicRequest{Topic: topic, Level: level, Context: extra}.
				Normalize().
				Validate(cat.TeachingLevels())
			if err != nil {
				return fmt.Errorf("%w (levels: %s)", err, strings.Join(cat.TeachingLevels(), "; "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.BuildTeachingPrompt(req.Topic, req.Level, req.Context))
			return nil
		},
	}
	teach.Flags().String("topic", "", "Lesson topic")
	teach.Flags().String("level", "", "Student level")
	teach.Flags().String("context", "", "Additional context")

	cmd.AddCommand(curriculum, teach)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Extract topics and write them to a spreadsheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			list, err := extractWithPolicy(cmd, text)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteTopics(f, title, list); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d topics to %s\n", len(list), out)
			return nil
		},
	}
	cmd.Flags().String("policy", catalog.PolicyCurriculum, "Extraction policy (curriculum or teaching)")
	cmd.Flags().String("out", "topics.xlsx", "Output file")
	cmd.Flags().String("title", "", "Workbook title")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise recent generations from the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetDuration("since")
			url, _ := cmd.Flags().GetString("database-url")
			if url == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				url = cfg.Database.URL
			}
			if url == "" {
				return fmt.Errorf("no database configured (set MINERVA_DATABASE_URL or --database-url)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := database.New(ctx, database.Options{URL: url, MaxConns: 2})
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := tutor.NewPostgresEventLogger(db.Pool).Stats(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}
			writeStats(cmd.OutOrStdout(), since, stats)
			return nil
		},
	}
	cmd.Flags().Duration("since", 24*time.Hour, "How far back to look")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (overrides MINERVA_DATABASE_URL)")
	return cmd
}

func writeStats(w io.Writer, since time.Duration, stats []tutor.FlowStats) {
	if len(stats) == 0 {
		fmt.Fprintf(w, "No generations in the last %s.\n", since)
		return
	}
	fmt.Fprintf(w, "%-12s  %7s  %7s  %10s\n", "Flow", "Total", "Failed", "Avg ms")
	fmt.Fprintln(w, strings.Repeat("─", 42))
	for _, s := range stats {
		fmt.Fprintf(w, "%-12s  %7d  %7d  %10.0f\n", s.Flow, s.Total, s.Failed, s.AvgMillis)
	}
}
