package main

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag names double as viper keys.
const (
	flagConfig      = "config"
	flagMap         = "map"
	flagMapImage    = "map-image"
	flagDebug       = "debug"
	flagPlot        = "plot"
	flagPathPlot    = "path-plot"
	flagPlotWindow  = "plot-window"
	flagHost        = "host"
	flagPort        = "port"
	flagExportEvery = "export-every"
)

func rootCommand() *cobra.Command {
	vp := viper.New()

	root := &cobra.Command{
		Use:           "qnav",
		Short:         "Train a Q-learning agent to navigate a grid map",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			vp.SetEnvPrefix("QNAV")
			vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			vp.AutomaticEnv()
			if err := vp.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if vp.GetBool(flagDebug) {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String(flagConfig, "config.yaml", "training config file")
	flags.String(flagMap, "corridor", "built-in map: debug, corridor or labyrinth; overridden by the config's track")
	flags.String(flagMapImage, "", "png map, one pixel per cell; overrides --map and the config's track")
	flags.Bool(flagDebug, false, "debug mode: train on the debug map and log every capped episode")

	root.AddCommand(trainCommand(vp), serveCommand(vp))
	return root
}

func trainCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train headless and print the learned policy and values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd.Context(), vp, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String(flagPlot, "", "write reward and episode length curves to this png")
	cmd.Flags().String(flagPathPlot, "", "write the greedy rollout path to this png")
	cmd.Flags().Int(flagPlotWindow, 20, "moving mean window of the curves")
	return cmd
}

func serveCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train while serving live views of the value function",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), vp)
		},
	}
	cmd.Flags().String(flagHost, "", "the host ip")
	cmd.Flags().String(flagPort, "8080", "the host port")
	cmd.Flags().Int(flagExportEvery, 10, "publish a snapshot to the views every this many episodes")
	return cmd
}
