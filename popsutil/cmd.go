/*
Copyright © 2023 the PoPS authors.
This file is part of PoPS.

PoPS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

PoPS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with PoPS.  If not, see <http://www.gnu.org/licenses/>.
*/

package popsutil

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/pops"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to PoPS.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "host",
			usage: `
              host is the path to the input raster holding the number of
              hosts per cell.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "infected",
			usage: `
              infected is the path to the input raster holding the number
              of infected hosts per cell.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "weather",
			usage: `
              weather is the path to an optional raster of average weather
              coefficients. If it is not specified, a coefficient of 1 is
              used everywhere.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "infestation_potential",
			usage: `
              infestation_potential is the path where the output
              infestation potential raster should be created.`,
			defaultVal: "infestation_potential.asc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "infestation_range",
			usage: `
              infestation_range is the path where the output infestation
              range raster should be created.`,
			defaultVal: "infestation_range.asc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "reproductive_rate",
			usage: `
              reproductive_rate is the number of spores or pest units
              produced by a single host per reproduction cycle.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "natural_distance",
			usage: `
              natural_distance is the distance parameter for dispersal, in
              the same linear units as the raster resolution.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "nprocs",
			usage: `
              nprocs is the number of concurrent workers used for the
              neighborhood filtering step.`,
			shorthand:  "n",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("POPS")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("pops: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "pops",
	Short: "A raster model of pest and pathogen spread.",
	Long: `PoPS estimates the potential for a pest or pathogen to spread from
infected hosts to susceptible hosts across a raster landscape.
Use the subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'POPS_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of PoPS.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PoPS v%s\n", pops.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that computes infestation potential.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute infestation potential.",
	Long: `run computes infestation potential as a function of susceptible and
infected hosts. It writes two rasters: the per-cell infestation potential and
the per-cell infestation range whose maximum determines the dispersal
kernel radius.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// nprocs may arrive as a string when set from a configuration
		// file or environment variable.
		nprocs, err := cast.ToIntE(Cfg.Get("nprocs"))
		if err != nil {
			return fmt.Errorf("pops: reading 'nprocs': %v", err)
		}
		return Run(
			os.ExpandEnv(Cfg.GetString("host")),
			os.ExpandEnv(Cfg.GetString("infected")),
			os.ExpandEnv(Cfg.GetString("weather")),
			os.ExpandEnv(Cfg.GetString("infestation_potential")),
			os.ExpandEnv(Cfg.GetString("infestation_range")),
			Cfg.GetFloat64("reproductive_rate"),
			Cfg.GetFloat64("natural_distance"),
			nprocs,
		)
	},
	DisableAutoGenTag: true,
}
