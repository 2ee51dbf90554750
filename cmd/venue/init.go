// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"

	"github.com/keshu12345/crypto-market/config"
	"github.com/keshu12345/crypto-market/internal/logging"

	"github.com/jessevdk/go-flags"
)

type InitCmd struct {
	RootPathFlag

	Force bool `short:"f" long:"force" description:"Erase exiting configuration at the specified path"`
	Help  bool `short:"h" long:"help" description:"Show this help message"`
}

func (cmd *InitCmd) Execute(_ []string) error {
	if cmd.Help {
		return &flags.Error{
			Type:    flags.ErrHelp,
			Message: "venue init subcommand help",
		}
	}

	log := logging.NewProdLogger()
	defer log.AtExit()

	cfg := config.NewDefaultConfig(cmd.RootPath)
	if err := config.Write(cmd.RootPath, cfg, cmd.Force); err != nil {
		return fmt.Errorf("could not write the default configuration: %w", err)
	}

	log.Info("configuration generated successfully",
		logging.String("path", config.Path(cmd.RootPath)))
	return nil
}

var initCmd InitCmd

func Init(ctx context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{
		RootPathFlag: NewRootPathFlag(),
	}

	_, err := parser.AddCommand("init", "Initialize the venue", "Generate the default configuration of the venue", &initCmd)
	return err
}
