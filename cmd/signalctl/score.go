package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/quiz"
)

type scoreOutput struct {
	assessment.Result
	TierSlug string `json:"tierSlug"`
	Title    string `json:"title"`
}

func newScoreCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "score [answers.json]",
		Short: "Score a JSON answer list without storing it",
		Long: `Score reads a JSON array of {"questionId": ..., "value": ...} objects from
the given file, or from stdin when no file is named, and prints the score,
percentage and tier. Later answers to the same question win.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.catalog()
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening answers: %w", err)
				}
				defer f.Close()
				in = f
			}

			res, err := scoreAnswers(c, in)
			if err != nil {
				return err
			}

			out := scoreOutput{
				Result:   res,
				TierSlug: res.Tier.Slug(),
				Title:    assessment.Profile(res.Tier).Title,
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "score %d/%d (%d%%)\ntier  %s\n%s\n",
				out.Raw, out.Max, out.Percentage, out.Tier, out.Title)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func scoreAnswers(c *assessment.Catalog, r io.Reader) (assessment.Result, error) {
	var answers []assessment.Answer
	if err := json.NewDecoder(r).Decode(&answers); err != nil {
		return assessment.Result{}, fmt.Errorf("decoding answers: %w", err)
	}

	preview := quiz.NewSession("preview", c, nil, quiz.Options{})
	for _, a := range answers {
		if err := preview.SetAnswer(a.QuestionID, a.Value); err != nil {
			return assessment.Result{}, fmt.Errorf("answer %q: %w", a.QuestionID, err)
		}
	}
	return assessment.Evaluate(c, preview.Answers()), nil
}
