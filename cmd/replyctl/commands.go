package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"replypilot/internal/domain"
	"replypilot/internal/prompt"
)

var (
	templateFile string
	showRendered bool

	rating   int
	reviewer string
	text     string
	bizName  string
	bizPhone string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show template segments with business variables resolved",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBusiness(businessFile)
		if err != nil {
			return err
		}
		tpl, err := readSource(cmd, templateFile)
		if err != nil {
			return err
		}
		segs := prompt.Preview(tpl, b)
		out := cmd.OutOrStdout()
		for _, s := range segs {
			switch {
			case s.Kind == prompt.SegmentText:
				fmt.Fprintf(out, "text      %q\n", s.Content)
			case s.VariableKind == prompt.Known:
				fmt.Fprintf(out, "known     %s = %q\n", s.OriginalToken, s.Content)
			default:
				fmt.Fprintf(out, "unknown   %s\n", s.OriginalToken)
			}
		}
		if showRendered {
			fmt.Fprintln(out, "---")
			fmt.Fprintln(out, prompt.Render(segs))
		}
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the full generation prompt for a review",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBusiness(businessFile)
		if err != nil {
			return err
		}
		name, phone := bizName, bizPhone
		if name == "" {
			name = b.Name
		}
		if phone == "" {
			phone = b.Phone
		}
		p, err := prompt.Build(b, domain.ReviewData{Rating: rating, ReviewerName: reviewer, ReviewText: text}, name, phone)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&templateFile, "template", "-", "template file, or - for stdin")
	previewCmd.Flags().BoolVar(&showRendered, "rendered", true, "also print the rendered preview")

	promptCmd.Flags().IntVar(&rating, "rating", 5, "star rating (1-5)")
	promptCmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer name")
	promptCmd.Flags().StringVar(&text, "text", "", "review text")
	promptCmd.Flags().StringVar(&bizName, "name", "", "override the business name")
	promptCmd.Flags().StringVar(&bizPhone, "phone", "", "override the business phone")
}
