package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/reelcomposer/internal/analyzer"
	"github.com/ivlev/reelcomposer/internal/audio"
	"github.com/ivlev/reelcomposer/internal/combos"
	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/director"
	"github.com/ivlev/reelcomposer/internal/engine"
)

func (a *app) composer(cmd *cobra.Command) *engine.Composer {
	s := a.settings
	return &engine.Composer{
		Prober:      a.prober(),
		Renderer:    a.renderer(),
		Workspace:   s.Workspace,
		OutputDir:   s.ComposedDir(),
		MetadataDir: s.MetadataDir(),
		Encoding:    a.encoding(cmd.Context(), s.Encoder.Quality, s.Encoder.Preset),
	}
}

func newComposeCmd(a *app) *cobra.Command {
	var configPath, output string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Собрать одно видео по файлу композиции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if output == "" {
				base := filepath.Base(configPath)
				output = strings.TrimSuffix(base, filepath.Ext(base)) + ".mp4"
			}
			comp, err := f.Composition(strings.TrimSuffix(output, filepath.Ext(output)))
			if err != nil {
				return err
			}

			res, err := a.composer(cmd).Compose(cmd.Context(), comp, output)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Printf("[*] Уже существует, пропущено: %s\n", res.Output)
				return nil
			}
			fmt.Printf("[+++] Успех! Результат: %s (%.2fs, звук: %s)\n", res.Output, res.Duration, res.Audio)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Путь к YAML файлу композиции")
	cmd.Flags().StringVar(&output, "output", "", "Имя выходного файла в каталоге composed (по умолчанию: имя конфига .mp4)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var configPath, feedPath string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Собрать все комбинации из JSON фида",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.settings
			tmpl, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if feedPath == "" {
				feedPath = s.FeedPath()
			}
			entries, err := config.LoadFeed(feedPath)
			if err != nil {
				return err
			}
			fmt.Printf("[*] Комбинаций в фиде: %d, потоков: %d\n", len(entries), s.Workers)

			b := &engine.Batch{
				Composer:      a.composer(cmd),
				Template:      tmpl,
				NormalizedDir: s.NormalizedDir(),
				AudioRegion:   s.AudioRegion,
				Workers:       s.Workers,
			}
			report, err := b.Run(cmd.Context(), entries)
			if err != nil {
				return err
			}
			return printReport(report)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML композиции: раскладка, холст и режим длительности")
	cmd.Flags().StringVar(&feedPath, "feed", "", "Путь к JSON фиду комбинаций (по умолчанию из настроек)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	var planOnly bool
	cmd := &cobra.Command{
		Use:   "optimize [path]",
		Short: "Нарезать варианты hook, mid и full для Shorts",
		Long: "Без аргумента обрабатываются все .mp4 из каталога normalized.\n" +
			"С флагом --plan пишется только scenario.yaml, без рендера.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			classifier, err := analyzer.NewClassifier(s.Optimize.Classifier)
			if err != nil {
				return err
			}
			d := director.NewDirector(classifier)
			d.Speed = s.Optimize.Speed
			d.Template = s.Optimize.Template

			o := &engine.Optimizer{
				Prober:        a.prober(),
				Renderer:      a.renderer(),
				Director:      d,
				NormalizedDir: s.NormalizedDir(),
				OutputDir:     s.OptimizedDir(),
				Canvas:        s.Optimize.Canvas,
				Workers:       s.Workers,
				PlanOnly:      planOnly,
			}
			if !planOnly {
				o.Encoding = a.encoding(cmd.Context(), s.Optimize.Quality, s.Optimize.Preset)
			}

			if len(args) == 1 {
				res, err := o.OptimizeSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("[*] %s: %s, стратегия %s\n", res.SourceID, res.Scenario.Aspect, res.Scenario.Strategy)
				if len(res.Skipped) > 0 {
					fmt.Printf("[*] Пропущено (уже есть): %s\n", strings.Join(res.Skipped, ", "))
				}
				fmt.Printf("[+++] Успех! Результат: %s\n", director.SourceDir(o.OutputDir, res.SourceID))
				return nil
			}

			report, err := o.OptimizeAll(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(report)
		},
	}
	cmd.Flags().BoolVar(&planOnly, "plan", false, "Только записать scenario.yaml")
	return cmd
}

func newCombosCmd(a *app) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "combos",
		Short: "Сгенерировать фид пар видео для batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = a.settings.NormalizedDir()
			}
			if output == "" {
				output = a.settings.FeedPath()
			}
			assets, err := combos.Scan(input)
			if err != nil {
				return err
			}
			g, err := combos.NewGenerator(assets)
			if err != nil {
				return err
			}
			entries := g.Generate()
			if err := combos.Save(output, entries); err != nil {
				return err
			}
			fmt.Printf("[*] Видео: %d\n", len(g.Assets()))
			fmt.Printf("[+++] Успех! %d комбинаций: %s\n", len(entries), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Каталог с нормализованными видео (по умолчанию из настроек)")
	cmd.Flags().StringVar(&output, "output", "", "Путь к JSON фиду (по умолчанию из настроек)")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Показать пресеты громкости",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range audio.Names() {
				p, _ := audio.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s I=%g LRA=%g TP=%g\n",
					p.Name, p.IntegratedLUFS, p.LoudnessRange, p.TruePeakDB)
			}
		},
	}
}

func printReport(r *engine.Report) error {
	fmt.Printf("[*] Всего: %d, собрано: %d, пропущено: %d, ошибок: %d\n",
		r.Total, r.Rendered, r.Skipped, r.Failed)
	for _, err := range r.Errors {
		fmt.Printf("[-] %v\n", err)
	}
	if r.Failed > 0 {
		return fmt.Errorf("%d из %d завершились с ошибкой", r.Failed, r.Total)
	}
	fmt.Println("[+++] Успех!")
	return nil
}
