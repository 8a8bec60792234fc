package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
)

func newModelsCmd() *cobra.Command {
	var (
		doc      string
		priority string
		vram     float64
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Recommend a model for a document type and list the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := constants.ParseDocumentType(doc)
			if !ok {
				return common.NewAppError(common.CodeInput, fmt.Sprintf("unknown document type %q", doc), nil)
			}
			p, err := models.ParsePriority(priority)
			if err != nil {
				return common.NewAppError(common.CodeInput, "invalid --priority", err)
			}
			if vram <= 0 {
				vram = models.DetectVRAMGB(cmd.Context())
			}
			rec := models.NewSelector(vram).Recommend(d, p)
			if asJSON {
				out, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			printRecommendation(rec)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&doc, "doc", "d", string(constants.KTP), "document type")
	f.StringVar(&priority, "priority", string(models.PriorityBalanced), "balanced, accuracy, speed or memory")
	f.Float64Var(&vram, "vram", 0, "available VRAM in GB (default: detect with nvidia-smi)")
	f.BoolVar(&asJSON, "json", false, "print the recommendation as JSON")
	return cmd
}
