package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"
)

// maxEmptyReads bounds how many consecutive empty reads a live source
// tolerates before escalating to ErrSourceUnavailable.
const maxEmptyReads = 25

// FFmpegSource captures frames by piping an ffmpeg MJPEG stream and
// extracting complete JPEG frames from it. It handles V4L2 devices, RTSP
// and HTTP streams, and plain video files.
type FFmpegSource struct {
	device string
	fps    float64
	isFile bool

	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
	chunk  []byte
	seq    uint64
	clock  func() time.Time
	logger *log.Logger
}

// NewFFmpegSource starts an ffmpeg process reading from device and decoding
// to an image2pipe MJPEG stream at the given frame rate. device may be a
// V4L2 node ("/dev/video0"), an rtsp:// or http(s):// URL, or a file path.
func NewFFmpegSource(device string, fps float64, logger *log.Logger) (*FFmpegSource, error) {
	s := &FFmpegSource{
		device: device,
		fps:    fps,
		isFile: !isNetworkSource(device) && !strings.HasPrefix(device, "/dev/"),
		buf:    make([]byte, 0, 1024*1024),
		chunk:  make([]byte, 8192),
		clock:  time.Now,
		logger: logger,
	}

	s.cmd = exec.Command("ffmpeg", s.args()...)

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	s.stdout = stdout

	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting ffmpeg for %s: %v", ErrSourceUnavailable, device, err)
	}

	// Consume stderr so ffmpeg never blocks on a full pipe.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	logger.Printf("[Video] Started capture from %s (%.1f fps)", device, fps)
	return s, nil
}

func (s *FFmpegSource) args() []string {
	fpsArg := fmt.Sprintf("%g", s.fps)
	switch {
	case strings.HasPrefix(s.device, "rtsp://"):
		return []string{
			"-rtsp_transport", "tcp",
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fpsArg,
			"-q:v", "5",
			"-",
		}
	case strings.HasPrefix(s.device, "http://"), strings.HasPrefix(s.device, "https://"):
		return []string{
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fpsArg,
			"-q:v", "5",
			"-",
		}
	case s.isFile:
		// -re paces file playback at native speed so the pipeline sees a
		// realistic frame cadence instead of an instant burst.
		return []string{
			"-re",
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fpsArg,
			"-q:v", "5",
			"-",
		}
	default:
		// V4L2 device (USB camera)
		return []string{
			"-f", "v4l2",
			"-framerate", fpsArg,
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}
}

// Next reads from the ffmpeg pipe until a complete JPEG frame is available
// and returns it decoded.
func (s *FFmpegSource) Next(ctx context.Context) (*Frame, error) {
	emptyReads := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if data := ExtractJPEGFrame(&s.buf); data != nil {
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				// Corrupt frame mid-stream; skip it and keep reading.
				s.logger.Printf("[Video] Dropping undecodable frame: %v", err)
				continue
			}
			s.seq++
			return &Frame{
				Seq:       s.seq,
				Timestamp: s.clock(),
				Image:     img,
				Data:      data,
			}, nil
		}

		n, err := s.stdout.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			emptyReads = 0
			continue
		}
		if err == io.EOF {
			if s.isFile {
				return nil, ErrSourceExhausted
			}
			return nil, fmt.Errorf("%w: stream ended for %s", ErrSourceUnavailable, s.device)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading from %s: %v", ErrSourceUnavailable, s.device, err)
		}

		emptyReads++
		if emptyReads >= maxEmptyReads {
			return nil, fmt.Errorf("%w: %d consecutive empty reads from %s", ErrSourceUnavailable, emptyReads, s.device)
		}
	}
}

// Close kills the ffmpeg process and releases the pipe.
func (s *FFmpegSource) Close() error {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	return nil
}

func isNetworkSource(device string) bool {
	return strings.HasPrefix(device, "http://") ||
		strings.HasPrefix(device, "https://") ||
		strings.HasPrefix(device, "rtsp://")
}

// ExtractJPEGFrame extracts one complete JPEG frame (FFD8...FFD9) from the
// buffer, consuming it. Returns nil if no complete frame is buffered yet.
func ExtractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}

var _ Source = (*FFmpegSource)(nil)
