// Package cli wires the cobra command tree.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"echoscript/internal/asr"
	"echoscript/internal/config"
	"echoscript/internal/doctor"
	"echoscript/internal/export"
	"echoscript/internal/logging"
	"echoscript/internal/media"
	"echoscript/internal/models"
	"echoscript/internal/pipeline"
	"echoscript/internal/vad"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a local file or YouTube URL end to end.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <file-or-url>",
		Short: "Transcribe an audio/video file or YouTube URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			applyASRFlags(cmd, cfg)
			if v, _ := cmd.Flags().GetString("format"); v != "" {
				cfg.Export.Format = v
			}
			if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
				cfg.Export.OutputDir = v
			}
			timestamps, _ := cmd.Flags().GetBool("timestamps")

			format, err := export.ParseFormat(cfg.Export.Format)
			if err != nil {
				return err
			}
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}

			modelPath, err := ensureModel(cfg, logger)
			if err != nil {
				return err
			}
			engine, err := asr.NewEngine(modelPath, logger)
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			norm, err := media.NewNormalizer(cfg, logger)
			if err != nil {
				return err
			}
			defer norm.Cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			wavPath, err := norm.Prepare(ctx, args[0])
			if err != nil {
				return err
			}

			batch := pipeline.NewBatch(engine, logger)
			job := batch.StartJob(ctx, wavPath, pipeline.BatchOptions{
				Language:     cfg.ASR.Language,
				Task:         asr.Task(cfg.ASR.Task),
				ChunkSeconds: cfg.Pipeline.ChunkSeconds,
			})
			go func() {
				<-ctx.Done()
				job.Cancel()
			}()

			var res *pipeline.Result
			for ev := range job.Events {
				switch ev.Kind {
				case pipeline.EventProgress:
					fmt.Fprintf(cmd.ErrOrStderr(), "\rchunk %d/%d", ev.ChunksDone, ev.ChunksTotal)
					if ev.ChunksDone == ev.ChunksTotal {
						fmt.Fprintln(cmd.ErrOrStderr())
					}
				case pipeline.EventStatus:
					logger.Debugf("job status: %s", ev.Text)
				case pipeline.EventFailed:
					return fmt.Errorf("%s", ev.Text)
				case pipeline.EventCompleted:
					res = ev.Result
				}
			}
			if res == nil {
				return fmt.Errorf("job produced no result")
			}
			if res.Cancelled {
				fmt.Fprintln(cmd.ErrOrStderr(), "cancelled; writing partial transcript")
			}

			out := asr.Result{Text: res.Text, Segments: res.Segments}
			if timestamps && format != export.FormatSRT {
				out.Text = strings.TrimRight(export.FormatTimestamped(res.Segments), "\n")
			}

			outDir := cfg.Export.OutputDir
			if outDir == "" {
				outDir = "."
			}
			dest := export.OutputPath(outDir, args[0], format)
			exp, err := export.ForFormat(format)
			if err != nil {
				return err
			}
			if err := exp.Export(out, dest); err != nil {
				return err
			}
			fmt.Println(out.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "saved transcript to %s\n", dest)
			return nil
		},
	}
	addASRFlags(cmd)
	cmd.Flags().StringP("format", "f", "", "output format: txt, md, srt, docx")
	cmd.Flags().StringP("output-dir", "o", "", "directory for the transcript file")
	cmd.Flags().Bool("timestamps", false, "prefix each line with its time range")
	return cmd
}

// NewListenCmd runs live microphone transcription until interrupted.
func NewListenCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Transcribe live microphone audio (Ctrl-C to stop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			applyASRFlags(cmd, cfg)
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}

			modelPath, err := ensureModel(cfg, logger)
			if err != nil {
				return err
			}
			engine, err := asr.NewEngine(modelPath, logger)
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			capture, err := pipeline.NewMicCapture(cfg.Audio.DeviceName, cfg.Audio.SampleRate, cfg.Audio.BlockMS, logger)
			if err != nil {
				return err
			}

			var gate pipeline.VoiceGate
			if cfg.VAD.Enabled {
				gate, err = vad.New(cfg.Audio.SampleRate, cfg.VAD.Aggressiveness)
				if err != nil {
					return err
				}
			}

			stream := pipeline.NewStream(engine, capture, logger, pipeline.StreamOptions{
				SampleRate:    cfg.Audio.SampleRate,
				WindowSeconds: cfg.Pipeline.WindowSeconds,
				Language:      cfg.ASR.Language,
				Task:          asr.Task(cfg.ASR.Task),
				Gate:          gate,
				OnResult: func(text string) {
					fmt.Println(text)
				},
				OnStatus: func(status string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s]\n", status)
				},
			})
			if err := stream.Start(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			<-ctx.Done()
			stream.Stop()
			return nil
		},
	}
	addASRFlags(cmd)
	return cmd
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Printf("%-20s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewSetupCmd downloads the configured model if missing.
func NewSetupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download the configured whisper model if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			path, err := ensureModel(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Println("model ready at", path)
			return nil
		},
	}
}

func addASRFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "whisper model name or path")
	cmd.Flags().StringP("lang", "l", "", "source language code, or auto")
	cmd.Flags().String("task", "", "transcribe or translate")
}

func applyASRFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.ASR.Model = v
	}
	if v, _ := cmd.Flags().GetString("lang"); v != "" {
		cfg.ASR.Language = v
	}
	if v, _ := cmd.Flags().GetString("task"); v != "" {
		cfg.ASR.Task = v
	}
}

// ensureModel resolves the configured model to a local path,
// downloading registry models on first use.
func ensureModel(cfg *config.Config, logger *logrus.Logger) (string, error) {
	if strings.Contains(cfg.ASR.Model, string(os.PathSeparator)) {
		path := cfg.ModelPath()
		if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
			return "", fmt.Errorf("model not found: %w", err)
		}
		return path, nil
	}
	mgr := models.NewManager(cfg.ASR.ModelDir, logger)
	var downloading bool
	path, err := mgr.Ensure(cfg.ASR.Model, func(done, total int64) {
		downloading = true
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\rdownloading %s: %5.1f%%", cfg.ASR.Model, float64(done)/float64(total)*100)
		} else {
			fmt.Fprintf(os.Stderr, "\rdownloading %s: %d MiB", cfg.ASR.Model, done>>20)
		}
	})
	if err != nil {
		return "", err
	}
	if downloading {
		fmt.Fprintln(os.Stderr)
	}
	return path, nil
}
