package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTemplateCmd создаёт группу команд для управления templates.
func NewTemplateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage simulation templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(clientFn, outputFn),
		newTemplateCreateCmd(clientFn, outputFn),
		newTemplateShowCmd(clientFn, outputFn),
		newTemplateUpdateCmd(clientFn, outputFn),
		newTemplateDeleteCmd(clientFn, outputFn),
		newNodeTypesCmd(clientFn, outputFn),
	)

	return cmd
}

var templateHeaders = []string{"ID", "NAME", "VERSION", "DEFAULT", "UPDATED"}

func templateRow(t *TemplateResponse) []string {
	return []string{t.ID, t.Name, t.Version, strconv.FormatBool(t.IsDefault), t.UpdatedAt}
}

func newTemplateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			templates, err := client.ListTemplates()
			if err != nil {
				return err
			}

			rows := make([][]string, len(templates))
			for i := range templates {
				rows[i] = templateRow(&templates[i])
			}

			out.Print(templateHeaders, rows, templates)
			return nil
		},
	}
}

func newTemplateCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var scenarioFile string
	var isDefault bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a template from a scenario file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(scenarioFile)
			if err != nil {
				return fmt.Errorf("failed to read scenario file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("scenario file is not valid JSON")
			}

			tmpl, err := client.CreateTemplate(CreateTemplateRequest{
				Name:        name,
				Description: description,
				Scenario:    json.RawMessage(data),
				IsDefault:   isDefault,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template created: %s", tmpl.ID))
			out.Print(templateHeaders, [][]string{templateRow(tmpl)}, tmpl)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Template name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Template description")
	cmd.Flags().StringVar(&scenarioFile, "scenario-file", "", "Path to scenario JSON file (required)")
	cmd.Flags().BoolVar(&isDefault, "default", false, "Mark template as default")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("scenario-file")

	return cmd
}

func newTemplateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show template details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var tmpl *TemplateResponse
			var err error

			if args[0] == "default" {
				tmpl, err = client.GetDefaultTemplate()
			} else {
				tmpl, err = client.GetTemplate(args[0])
			}
			if err != nil {
				return err
			}

			out.Print(templateHeaders, [][]string{templateRow(tmpl)}, tmpl)
			return nil
		},
	}
}

func newTemplateUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var scenarioFile string
	var isDefault string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateTemplateRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("scenario-file") {
				data, err := os.ReadFile(scenarioFile)
				if err != nil {
					return fmt.Errorf("failed to read scenario file: %w", err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("scenario file is not valid JSON")
				}
				req.Scenario = json.RawMessage(data)
			}
			if cmd.Flags().Changed("default") {
				b, err := strconv.ParseBool(isDefault)
				if err != nil {
					return fmt.Errorf("invalid value for --default: %s", isDefault)
				}
				req.IsDefault = &b
			}

			tmpl, err := client.UpdateTemplate(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Template updated")
			out.Print(templateHeaders, [][]string{templateRow(tmpl)}, tmpl)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New template name")
	cmd.Flags().StringVar(&description, "description", "", "New template description")
	cmd.Flags().StringVar(&scenarioFile, "scenario-file", "", "Path to new scenario JSON file")
	cmd.Flags().StringVar(&isDefault, "default", "", "Set default flag (true/false)")

	return cmd
}

func newTemplateDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTemplate(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template deleted: %s", args[0]))
			return nil
		},
	}
}

func newNodeTypesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "node-types",
		Short: "List registered node types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			types, err := client.ListNodeTypes()
			if err != nil {
				return err
			}

			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t.Type}
			}

			out.Print([]string{"TYPE"}, rows, types)
			return nil
		},
	}
}
