// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: config
// Short: inspect and edit the reconrig configuration
// Aliases: cfg
//
// Subcommands:
//
//	show             print every key and its current value (default)
//	set <key> <val>  change one key and save the file
//	reset            rewrite the config file with defaults
//	path             print the config file path
//
// Keys use dot notation, e.g. install.tools_dir. Values are converted
// to the field's type, so "true" and "30" work for bool and int keys.
// The file is validated before every save; a set that would break the
// config is rejected and nothing is written.
//
// Examples:
//
//	reconrig config
//	reconrig config set install.strict true
//	reconrig config set install.tools_dir ~/recon
//	reconrig config reset --yes
//	reconrig config path
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/util"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "show", "":
		return configShow(args)
	case "set":
		return configSet(args)
	case "reset":
		return configReset(args)
	case "path":
		return configPath(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"must be one of: show, set, reset, path",
			"reconrig config set install.strict true")
	}
}

// configShow prints every key with its current value.
func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config show", cfg).Print()
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("reconrig config"))
	note := ""
	if !util.FileExists(path) {
		note = DimStyle.Render(" (not written yet; showing defaults)")
	}
	fmt.Printf("%s %s%s\n\n", LabelStyle.Render("File:"), ValueStyle.Render(path), note)

	keys := config.GetAllKeys()
	keyWidth := 0
	for _, k := range keys {
		if w := util.StringWidth(k); w > keyWidth {
			keyWidth = w
		}
	}

	for _, k := range keys {
		val, err := cfg.Get(k)
		if err != nil {
			continue
		}
		fmt.Printf("  %s  %s\n",
			util.PadWidth(k, keyWidth),
			ValueStyle.Render(formatConfigValue(val)))
	}

	fmt.Println()
	fmt.Printf("Change a value with %s.\n",
		HighlightStyle.Render("reconrig config set <key> <value>"))
	return nil
}

// configSet changes one key and saves the file.
func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return NewValidationErrorWithExample("arguments", strings.TrimSpace(args.ConfigKey+" "+args.ConfigVal),
			"set needs a key and a value",
			"reconrig config set install.strict true")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return NewValidationErrorWithExample("key", args.ConfigKey, err.Error(),
			"reconrig config set install.strict true")
	}
	if err := cfg.Validate(); err != nil {
		return WrapError(err, "validating config")
	}
	if err := cfg.SaveTOML(); err != nil {
		return WrapError(err, "saving config")
	}

	val, err := cfg.Get(args.ConfigKey)
	if err != nil {
		val = args.ConfigVal
	}

	if args.JSON {
		return NewJSONResponse("config set", ConfigKeyData{Key: args.ConfigKey, Value: val}).Print()
	}

	path, _ := config.ConfigPathTOML()
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"),
		args.ConfigKey, ValueStyle.Render(formatConfigValue(val)))
	fmt.Printf("Saved to %s\n", DimStyle.Render(path))
	return nil
}

// configReset rewrites the config file with defaults.
func configReset(args Args) error {
	confirmed, err := RequireConfirmation(args.Yes,
		"overwrite the config file with defaults", args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		ShowCancellationMessage()
		return nil
	}

	cfg := config.Default()
	if err := cfg.SaveTOML(); err != nil {
		return WrapError(err, "saving config")
	}

	if args.JSON {
		return NewJSONResponse("config reset", cfg).Print()
	}

	path, _ := config.ConfigPathTOML()
	fmt.Printf("%s Config reset to defaults.\n", SuccessStyle.Render("[OK]"))
	fmt.Printf("Saved to %s\n", DimStyle.Render(path))
	return nil
}

// configPath prints the config file path, bare so scripts can use it.
func configPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config path", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}

// formatConfigValue renders one config value for the show table.
func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return "[]"
		}
		return strings.Join(val, ", ")
	case string:
		if val == "" {
			return `""`
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
