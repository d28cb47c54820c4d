//go:build !windows

package ffmpeg

import "os/exec"

func setHideWindow(*exec.Cmd) {}
