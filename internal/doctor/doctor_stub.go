//go:build !whisper

package doctor

func checkPortAudio() Result {
	return Result{Name: "portaudio", Pass: true, Detail: "skipped (built without whisper tag)"}
}
