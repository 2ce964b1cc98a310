package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// bindViper is the configuration key the flag overrides.
	bindViper string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $XDG_CONFIG_HOME/licensor/config.yaml)",
	}
	envFileFlag = commandLineFlag{
		name:  "env-file",
		usage: "load environment variables from a dotenv file",
	}
	debugFlag = commandLineFlag{
		name:      "debug",
		usage:     "enable debug logging",
		isBool:    true,
		bindViper: "debug",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	logFormatFlag = commandLineFlag{
		name:      "log-format",
		usage:     "log format (text or json)",
		bindViper: "log_format",
	}
	outputFlag = commandLineFlag{
		name:         "output",
		shorthand:    "o",
		defaultValue: outputTree,
		usage:        "output format (tree or yaml)",
	}
	agreementFlag = commandLineFlag{
		name:   "agreement",
		usage:  "print the license agreement",
		isBool: true,
	}
	syncFlag = commandLineFlag{
		name:   "sync",
		usage:  "reconcile with the license server and wait for its verdict",
		isBool: true,
	}
	emailFlag = commandLineFlag{
		name:      "email",
		shorthand: "e",
		usage:     "email address of the licensee",
	}
	emailFlagRequired = commandLineFlag{
		name:      "email",
		shorthand: "e",
		usage:     "email address of the licensee (required)",
		required:  true,
	}
	serialFlag = commandLineFlag{
		name:      "serial",
		shorthand: "s",
		usage:     "serial key of the purchased license",
	}
	licenseFileFlag = commandLineFlag{
		name:      "file",
		shorthand: "f",
		usage:     "install a license file instead of contacting the license server",
	}
	firstNameFlag = commandLineFlag{
		name:  "first-name",
		usage: "first name of the licensee",
	}
	lastNameFlag = commandLineFlag{
		name:  "last-name",
		usage: "last name of the licensee",
	}
)

var commonFlags = []commandLineFlag{configFlag, envFileFlag, debugFlag, quietFlag, logFormatFlag}

func initFlags(cmd *cobra.Command, addFlags ...commandLineFlag) {
	flags := append(append([]commandLineFlag{}, commonFlags...), addFlags...)
	for _, flag := range flags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds the flags that override configuration keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command, addFlags ...commandLineFlag) error {
	flags := append(append([]commandLineFlag{}, commonFlags...), addFlags...)
	for _, flag := range flags {
		if flag.bindViper == "" {
			continue
		}
		if err := v.BindPFlag(flag.bindViper, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
