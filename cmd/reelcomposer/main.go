package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/logging"
	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/system"
	"github.com/ivlev/reelcomposer/internal/video"
)

// app carries state resolved once in the root PersistentPreRunE.
type app struct {
	settingsPath string
	logLevel     string
	workers      int

	settings *config.Settings
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "reelcomposer",
		Short:         "Композиция и рефрейминг коротких вертикальных видео через ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.settingsPath, "settings", "", "Путь к reelcomposer.yaml (по умолчанию: $REEL_SETTINGS или ./reelcomposer.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Уровень логов: trace, debug, info, warn, error")
	flags.IntVar(&a.workers, "workers", 0, "Потоки (0 - авто по ядрам и памяти)")

	root.AddCommand(
		newComposeCmd(a),
		newBatchCmd(a),
		newOptimizeCmd(a),
		newCombosCmd(a),
		newPresetsCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := config.Load(a.settingsPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		s.Log.Level = a.logLevel
	}
	logging.Init(logging.Config{Level: s.Log.Level, Format: s.Log.Format})

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	switch {
	case a.workers > 0:
		s.Workers = a.workers
	case s.Workers == 0:
		s.Workers = system.DefaultWorkers()
	}
	a.settings = s

	ctx := logging.ContextWithNewRunID(cmd.Context())
	cmd.SetContext(ctx)
	logging.Ctx(ctx).Debug().Str("workspace", s.Workspace).Int("workers", s.Workers).Msg("settings loaded")
	return nil
}

func (a *app) prober() probe.Prober {
	return probe.NewFFprobe(a.settings.Binaries.FFprobe)
}

func (a *app) renderer() video.Renderer {
	return video.NewFFmpegEncoder(a.settings.Binaries.FFmpeg)
}

// encoding resolves the codec once per command and fills in a quality
// suited to it when none is configured.
func (a *app) encoding(ctx context.Context, quality int, preset string) video.Encoding {
	s := a.settings
	codec := system.ResolveEncoder(ctx, s.Encoder.Codec, s.Binaries.FFmpeg)
	if codec != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", codec)
	}
	if quality == 0 {
		switch codec {
		case "h264_videotoolbox":
			quality = 75 // Хорошее качество для VideoToolbox
		case "h264_nvenc":
			quality = 28 // Эквивалент CRF для NVENC
		default:
			quality = 23 // Стандартный CRF для x264
		}
	}
	return video.Encoding{
		Codec:        codec,
		Quality:      quality,
		Preset:       preset,
		AudioBitrate: s.Encoder.AudioBitrate,
	}
}
