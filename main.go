package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anacrolix/log"
	"github.com/urfave/cli/v3"

	"github.com/moviesite/dmc/avtransport"
	"github.com/moviesite/dmc/control"
	"github.com/moviesite/dmc/ffmpeg"
	"github.com/moviesite/dmc/upnp"
	"github.com/moviesite/dmc/webapi"
)

func main() {
	cmd := &cli.Command{
		Name:  "dmc",
		Usage: "minimal DLNA media controller for the movie catalog",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log wire-level traffic"},
			&cli.StringFlag{Name: "config", Usage: "config file (default $DMC_CONFIG or ./dmc.json)"},
		},
		Commands: []*cli.Command{
			discoverCommand(),
			describeCommand(),
			contentsCommand(),
			playCommand(),
			checkCommand(),
			serveCommand(),
		},
	}
	if err := cmd.Run(rootContext(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func rootContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx
}

func logger(cmd *cli.Command) log.Logger {
	ret := log.Default
	if cmd.Bool("debug") {
		ret = ret.FilterLevel(log.Debug)
	}
	return ret
}

func controller(cmd *cli.Command) (*control.Controller, error) {
	var (
		cfg *control.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = control.LoadFile(path)
	} else {
		cfg, err = control.Load()
	}
	if err != nil {
		return nil, err
	}
	ctrl := control.New(cfg)
	ctrl.Logger = logger(cmd)
	return ctrl, nil
}

// bareController serves commands that take device URLs directly and need
// no config file.
func bareController(cmd *cli.Command) *control.Controller {
	ctrl := control.New(&control.Config{})
	ctrl.Logger = logger(cmd)
	return ctrl
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "list DLNA devices responding on the local network",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: string(control.ModeSmart), Usage: "all, smart, renderers or mediaservers"},
			&cli.DurationFlag{Name: "timeout", Value: 2 * time.Second},
			&cli.IntFlag{Name: "verbosity", Aliases: []string{"v"}, Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report, err := bareController(cmd).DiscoverReport(ctx,
				control.DiscoverMode(cmd.String("mode")), cmd.Duration("timeout"), int(cmd.Int("verbosity")))
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "dump a device's services and actions",
		ArgsUsage: "DEVICE_URL",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "verbosity", Aliases: []string{"v"}, Value: 2},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			location := cmd.Args().First()
			if location == "" {
				return errors.New("missing device URL")
			}
			dev, err := upnp.OpenWith(ctx, location, nil, logger(cmd))
			if err != nil {
				return err
			}
			dev.Describe(os.Stdout, int(cmd.Int("verbosity")))
			return nil
		},
	}
}

func contentsCommand() *cli.Command {
	return &cli.Command{
		Name:      "contents",
		Usage:     "list a media server's contents under a path",
		ArgsUsage: "DEVICE_URL PATH",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "recurse", Value: true, Usage: "descend into subdirectories"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			location, contentPath := cmd.Args().Get(0), cmd.Args().Get(1)
			if location == "" {
				return errors.New("missing device URL")
			}
			ctrl := bareController(cmd)
			ctrl.Config.Volumes = map[string]control.VolumeTarget{
				"device": {DeviceURL: location, Path: contentPath},
			}
			entries, err := ctrl.BrowseTree(ctx, "device", contentPath, cmd.Bool("recurse"))
			if err != nil {
				return err
			}
			total := 0
			for _, dir := range entries {
				for _, file := range dir.Files {
					fmt.Printf("%s  %s  %s\n", dir.Path, file.Title, file.URI)
					total++
				}
				for _, sub := range dir.Dirs {
					fmt.Printf("%s/%s\n", dir.Path, sub)
				}
			}
			fmt.Printf("%d contents in %q\n", total, contentPath)
			return nil
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "play a catalog file on a renderer",
		ArgsUsage: "CATALOG_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "renderer", Usage: "renderer description URL, vlc, or browser"},
			&cli.StringFlag{Name: "probe", Usage: "local copy of the file, ffprobed for DIDL metadata"},
			&cli.StringFlag{Name: "title"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return errors.New("missing catalog file path")
			}
			ctrl, err := controller(cmd)
			if err != nil {
				return err
			}
			media := avtransport.MediaInfo{Title: cmd.String("title")}
			if local := cmd.String("probe"); local != "" {
				media = probedMedia(local, media, ctrl.Logger)
			}
			result := ctrl.PlayMovie(ctx, control.PlayRequest{
				File:        file,
				RendererURL: cmd.String("renderer"),
				Media:       media,
			})
			if result.Protocol == "" {
				return errors.New(result.Result)
			}
			fmt.Printf("%s: %s\n", result.Protocol, result.Result)
			return nil
		},
	}
}

// probedMedia fills in what ffprobe can tell about the local copy; misses
// are logged and left zero, renderers cope with sparse metadata.
func probedMedia(path string, media avtransport.MediaInfo, logger log.Logger) avtransport.MediaInfo {
	info, err := ffmpeg.Probe(path)
	if err != nil {
		logger.Printf("probing %s: %v", path, err)
		return media
	}
	if bitrate, err := info.Bitrate(); err == nil {
		media.Bitrate = bitrate
	}
	if duration, err := info.Duration(); err == nil {
		media.Duration = duration
	}
	media.Resolution = info.Resolution()
	if fi, err := os.Stat(path); err == nil {
		media.Size = uint64(fi.Size())
	}
	return media
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "verify catalog files are reachable on their media server",
		ArgsUsage: "SERVER_KEY CATALOG_FILE...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return errors.New("usage: check SERVER_KEY CATALOG_FILE...")
			}
			ctrl, err := controller(cmd)
			if err != nil {
				return err
			}
			var files []control.CatalogFile
			for i, file := range cmd.Args().Slice()[1:] {
				files = append(files, control.CatalogFile{ID: int64(i), File: file})
			}
			entries, err := ctrl.CheckMedias(ctx, cmd.Args().First(), files)
			if err != nil {
				return err
			}
			missing := 0
			for _, entry := range entries {
				if entry.URI == control.NotFoundURI {
					missing++
				}
				fmt.Printf("%s  %s\n", entry.File, entry.URI)
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d files not reachable", missing, len(entries))
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP JSON API for the web layer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default from config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctrl, err := controller(cmd)
			if err != nil {
				return err
			}
			addr := cmd.String("addr")
			if addr == "" {
				addr = ctrl.Config.Listen
			}
			return webapi.Serve(ctx, addr, ctrl, logger(cmd))
		},
	}
}
