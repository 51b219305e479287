package main

import (
	"fmt"
	"os"

	"echoscript/internal/cli"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "echoscript",
		Short: "EchoScript — local audio/video transcription with whisper.cpp",
		Long: `EchoScript transcribes audio and video locally with whisper.cpp: files,
YouTube URLs, or live microphone audio, exported as txt, md, srt or docx.

Key commands:
  transcribe <file-or-url>  Chunked batch transcription to a file
  listen                    Live microphone transcription
  mic list|set              Select microphone
  models list|download|set  Manage whisper.cpp models
  doctor|setup              Check deps / download configured model

Notable flags/env:
  -m, --model / -l, --lang / --task   Override ASR settings per run
  -f, --format txt|md|srt|docx        Output format
  Env overrides: ECHOSCRIPT_MODEL, ECHOSCRIPT_LANGUAGE,
                 ECHOSCRIPT_LOG_LEVEL/FORMAT, ECHOSCRIPT_FFMPEG,
                 ECHOSCRIPT_YTDLP, ECHOSCRIPT_VAD_ENABLED`,
		Example: `  echoscript transcribe talk.mp4
  echoscript transcribe https://youtu.be/dQw4w9WgXcQ -f srt
  echoscript transcribe interview.wav --lang de --task translate
  echoscript listen
  echoscript models download ggml-small-q5_1.bin
  echoscript mic set "USB Microphone"`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("EchoScript v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/echoscript/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(cli.NewTranscribeCmd(cfgPath))
	root.AddCommand(cli.NewListenCmd(cfgPath))
	root.AddCommand(cli.NewMicCmd(cfgPath))
	root.AddCommand(cli.NewModelsCmd(cfgPath))
	root.AddCommand(cli.NewDoctorCmd(cfgPath))
	root.AddCommand(cli.NewSetupCmd(cfgPath))

	return root.Execute()
}
