// Package ffmpeg reads media metadata from local files by shelling out to
// ffprobe, for filling playback requests when the caller has the file on
// hand.
package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/moviesite/dmc/cache"
)

var ErrFfprobeUnavailable = errors.New("ffprobe unavailable")

type Info struct {
	Format  map[string]string
	Streams []map[string]string
}

func (info *Info) Bitrate() (bitrate uint, err error) {
	_, err = fmt.Sscan(info.Format["bit_rate"], &bitrate)
	return
}

func (info *Info) Duration() (time.Duration, error) {
	d := info.Format["duration"]
	if d == "" || d == "N/A" {
		return 0, errors.New("no duration")
	}
	var f float64
	if _, err := fmt.Sscan(d, &f); err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

// Resolution returns WxH of the first video stream, or "".
func (info *Info) Resolution() string {
	for _, strm := range info.Streams {
		if strm["codec_type"] != "video" {
			continue
		}
		if strm["width"] != "" && strm["height"] != "" {
			return strm["width"] + "x" + strm["height"]
		}
	}
	return ""
}

func readSection(r *bufio.Reader, end string) (map[string]string, error) {
	ret := make(map[string]string)
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == end {
			break
		}
		ss := strings.SplitN(line, "=", 2)
		if len(ss) != 2 {
			return nil, fmt.Errorf("bad line: %s", line)
		}
		opt := ss[0]
		val := ss[1]
		if _, ok := ret[opt]; ok {
			return nil, errors.New(fmt.Sprint("duplicate option:", opt))
		}
		ret[opt] = val
	}
	return ret, nil
}

func readLine(r *bufio.Reader) (line string, err error) {
	for {
		var (
			buf []byte
			isP bool
		)
		buf, isP, err = r.ReadLine()
		if err != nil {
			return
		}
		line += string(buf)
		if !isP {
			break
		}
	}
	return
}

var ffprobePath string

func init() {
	ffprobePath, _ = exec.LookPath("ffprobe")
}

func parseOutput(r *bufio.Reader) (info *Info, err error) {
	info = &Info{}
	for {
		line, err := readLine(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch line {
		case "[FORMAT]":
			info.Format, err = readSection(r, "[/FORMAT]")
			if err != nil {
				return nil, err
			}
		case "[STREAM]":
			m, err := readSection(r, "[/STREAM]")
			if err != nil {
				return nil, err
			}
			var i int
			if _, err := fmt.Sscan(m["index"], &i); err != nil {
				return nil, err
			}
			if i != len(info.Streams) {
				return nil, errors.New("streams unordered")
			}
			info.Streams = append(info.Streams, m)
		default:
			return nil, errors.New(fmt.Sprint("unknown section:", line))
		}
	}
	return info, nil
}

func probeUncached(path string) (info *Info, err error) {
	if ffprobePath == "" {
		return nil, ErrFfprobeUnavailable
	}
	cmd := exec.Command(ffprobePath, "-show_format", "-show_streams", path)
	setHideWindow(cmd)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	defer out.Close()
	defer func() {
		waitErr := cmd.Wait()
		if waitErr != nil && err == nil {
			err = waitErr
		}
	}()
	return parseOutput(bufio.NewReader(out))
}

var probeCache = cache.New()

// Probe runs ffprobe on path, memoized by modification time.
func Probe(path string) (info *Info, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return
	}
	stamp := fi.ModTime()
	data, err := probeCache.Get(path, stamp, func() (cache.Data, cache.Stamp, error) {
		info, err := probeUncached(path)
		return info, stamp, err
	})
	if err != nil {
		return nil, err
	}
	info, _ = data.(*Info)
	return
}
