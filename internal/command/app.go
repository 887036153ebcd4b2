package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yuki-yano/vde-monitor/internal/config"
)

type Deps struct {
	LoadConfig   func() config.Config
	RunServe     func(context.Context, config.Config) error
	RunMigrateUp func(context.Context, config.Config) error
	RunExport    func(context.Context, config.Config, string) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "vde-monitor",
		Usage: "agent session timeline monitor",
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, deps, loadConfig(deps))
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the monitor",
				Action: func(ctx *cli.Context) error {
					return runServe(ctx.Context, deps, loadConfig(deps))
				},
			},
			{
				Name:  "migrate",
				Usage: "manage the snapshot database",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "create or update the snapshot schema",
						Action: func(ctx *cli.Context) error {
							return runMigrateUp(ctx.Context, deps, loadConfig(deps))
						},
					},
				},
			},
			{
				Name:  "timeline",
				Usage: "inspect stored timelines",
				Subcommands: []*cli.Command{
					{
						Name:  "export",
						Usage: "dump the persisted timeline snapshot as JSON",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "range",
								Usage: "range tag (15m, 1h, 3h, 6h, 24h, 3d, 7d)",
								Value: "1h",
							},
						},
						Action: func(ctx *cli.Context) error {
							return runExport(ctx.Context, deps, loadConfig(deps), ctx.String("range"))
						},
					},
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func runServe(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx, cfg)
}

func runMigrateUp(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunMigrateUp == nil {
		return errors.New("migrate up runner is not configured")
	}
	return deps.RunMigrateUp(ctx, cfg)
}

func runExport(ctx context.Context, deps Deps, cfg config.Config, rangeTag string) error {
	if deps.RunExport == nil {
		return errors.New("export runner is not configured")
	}
	return deps.RunExport(ctx, cfg, rangeTag)
}
