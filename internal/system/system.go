package system

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/reelcomposer/internal/logging"
)

// MemoryPerWorker is the rough peak of one 1080x1920 ffmpeg render.
const MemoryPerWorker = 1536 << 20

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logging.Warn().Err(err).Msg("Не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logging.Warn().Err(err).Msg("Не удалось установить лимит файлов")
	} else {
		logging.Debug().Uint64("nofile", rLimit.Cur).Msg("Системный лимит открытых файлов увеличен")
	}
}

// DefaultWorkers sizes the batch pool: one worker per physical core,
// capped by how many renders fit into available memory.
func DefaultWorkers() int {
	cores, err := cpu.Counts(false)
	if err != nil || cores < 1 {
		cores = 1
	}
	var available uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		available = vm.Available
	}
	return workersFor(cores, available)
}

func workersFor(cores int, available uint64) int {
	n := max(cores, 1)
	if available > 0 {
		n = min(n, int(available/MemoryPerWorker))
	}
	return max(n, 1)
}

// GetBestH264Encoder returns the first hardware encoder ffmpeg reports,
// falling back to libx264.
func GetBestH264Encoder(ctx context.Context, ffmpeg string) string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(encoders, name) {
			return name
		}
	}
	return "libx264"
}

// ResolveEncoder expands "auto" into a detected encoder.
func ResolveEncoder(ctx context.Context, codec, ffmpeg string) string {
	if codec == "auto" {
		return GetBestH264Encoder(ctx, ffmpeg)
	}
	return codec
}

// ListVideos returns the .mp4 files in dir ordered by file name, then
// path. With recursive set, subdirectories are scanned too and duplicate
// paths collapse.
func ListVideos(dir string, recursive bool) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".mp4") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		bi, bj := filepath.Base(files[i]), filepath.Base(files[j])
		if bi != bj {
			return bi < bj
		}
		return files[i] < files[j]
	})
	return files, nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
