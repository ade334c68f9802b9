package main

import (
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/safeher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every report as CSV",
	Long:  `Writes the admin CSV export straight from the database. Use --out - for stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := safeher.WriteReportsCSV(ctx, st, w)
		if err != nil {
			return err
		}
		logger.Info("reports exported", zap.Int("rows", n), zap.String("out", exportOut))
		if exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d reports to %s\n", n, exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "reports.csv", "Output file, or - for stdout")
}
