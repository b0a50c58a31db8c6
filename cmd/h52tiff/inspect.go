// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/h52tiff/internal/convert"
	"github.com/pdiddy/h52tiff/internal/discover"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.h5|dir>...",
		Short: "Report the dataset shape and type of HDF5 files",
		Long: `Inspect prints, for each input, the shape and element type of its
"exported_data" dataset and whether h52tiff would convert it. No pixel data
is read and nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, arg := range args {
				paths, err := discover.Files(arg)
				if err != nil {
					return err
				}
				for _, p := range paths {
					res, err := convert.Inspect(a.src, p)
					if err != nil {
						fmt.Fprintf(w, "%s: skip (%s)\n", p, res.Reason)
						continue
					}
					fmt.Fprintf(w, "%s: shape %v %s, %d channels: ok\n", p, res.Shape, res.DataType, res.Shape[0])
				}
			}
			return nil
		},
	}
}
