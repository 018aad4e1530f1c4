// Command xdma-c2h drives one or more card-to-host transfers over an
// XDMA-based UIO device and dumps the received bytes to files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/snalvc/xdma-uio-udrv/internal/config"
	"github.com/snalvc/xdma-uio-udrv/internal/descriptor"
	"github.com/snalvc/xdma-uio-udrv/internal/device"
	"github.com/snalvc/xdma-uio-udrv/internal/hugepage"
	"github.com/snalvc/xdma-uio-udrv/internal/xdmareg"
)

// Register offsets within the C2H channel and C2H SGDMA target pages.
const (
	regDescLo              = 0x80
	regDescHi              = 0x84
	channelInterruptEnable = 0x08
	channelRunControl      = 0x0C
	channelStatus          = 0x40

	statusDescCompleted = 1 << 2
)

// sizeList accumulates repeated -size flags, mirroring the original
// command's multitoken --size option.
type sizeList []uint64

func (s *sizeList) String() string {
	parts := make([]string, len(*s))
	for i, v := range *s {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func (s *sizeList) Set(v string) error {
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid -size value %q: %w", v, err)
	}
	*s = append(*s, n)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "xdma-c2h: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var sizes sizeList
	flag.Var(&sizes, "size", "transfer size in bytes, may be repeated for multiple transfers")
	fname := flag.String("fname", "dump.bin", "name of the dump file (per-transfer index inserted before the extension)")
	uioIndex := flag.Int("uio", -1, "UIO instance index (-1 selects the first xdma_uio device found)")
	channel := flag.Uint("channel", 0, "SGDMA channel index")
	configPath := flag.String("config", "", "path to a driver defaults YAML file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -size N [-size N ...] [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// Config values only fill in flags the user did not pass explicitly;
	// an explicit -uio/-channel always wins over the config file.
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if cfg.UioIndex != nil && !explicit["uio"] {
		*uioIndex = *cfg.UioIndex
	}
	if cfg.Channel != 0 && !explicit["channel"] {
		*channel = uint(cfg.Channel)
	}

	if len(sizes) == 0 {
		return errors.New("please specify at least one -size")
	}
	if *fname == "" {
		return errors.New("please specify -fname")
	}

	var uioSelector *int
	if *uioIndex >= 0 {
		uioSelector = uioIndex
	}

	factory := device.NewFactory()
	dev, err := factory.Open(uioSelector)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()

	ctrl := dev.ControlBar()
	regs := xdmareg.New(ctrl.VAddr(), ctrl.Len())

	chunksPerTransfer := make([]uint32, len(sizes))
	var realXferSize, xferSize uint64
	for i, size := range sizes {
		chunks := uint32(size / descriptor.ChunkSize)
		if size%descriptor.ChunkSize != 0 {
			chunks++
		}
		chunksPerTransfer[i] = chunks
		realXferSize += size
		xferSize += uint64(chunks) * descriptor.ChunkSize
	}

	buffer, err := descriptor.NewScatterBuffer(hugepage.Allocate, xferSize)
	if err != nil {
		return fmt.Errorf("allocate scatter buffer: %w", err)
	}
	defer buffer.Close()

	if err := buffer.Initialize(xferSize); err != nil {
		return fmt.Errorf("build descriptor ring: %w", err)
	}

	slog.Info("descriptor ring built",
		"num_data_pages", buffer.NumDataPages(),
		"num_descriptors", buffer.NDesc(),
		"desc_wb_paddr", fmt.Sprintf("0x%x", buffer.DescBufferPAddr()))

	ch := uint8(*channel)

	regs.WriteTarget(xdmareg.C2HSGDMA, ch, regDescLo, uint32(buffer.DescBufferPAddr()))
	regs.WriteTarget(xdmareg.C2HSGDMA, ch, regDescHi, uint32(buffer.DescBufferPAddr()>>32))

	regs.WriteTarget(xdmareg.C2HChannel, ch, channelInterruptEnable, statusDescCompleted)
	regs.WriteTarget(xdmareg.C2HChannel, ch, channelRunControl, 1)

	start := time.Now()
	regs.WriteTarget(xdmareg.C2HChannel, ch, channelInterruptEnable, 1)

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.DefaultBytes(int64(xferSize), "transferring")
	}

	if err := pollCompletion(regs, ch, cfg.PollTimeout); err != nil {
		return err
	}
	elapsed := time.Since(start)
	if bar != nil {
		bar.Finish()
	}

	regs.WriteTarget(xdmareg.C2HChannel, ch, channelStatus, statusDescCompleted)

	transferred := buffer.XferedSize()
	slog.Info("transfer complete",
		"requested_bytes", realXferSize,
		"transferred_bytes", transferred,
		"elapsed", elapsed,
		"throughput_mib_s", float64(transferred)/elapsed.Seconds()/(1<<20))

	return writeOutputFiles(buffer, *fname, chunksPerTransfer)
}

// errPollTimeout is returned when a transfer does not complete within the
// configured poll timeout.
var errPollTimeout = errors.New("xdma-c2h: timed out waiting for transfer to complete")

// pollCompletion busy-polls the channel's status register until the
// descriptor-completed bit is set. timeout bounds how long it waits; zero
// means poll forever. The polling itself stays a tight, context-free loop
// (register reads must not block), with the timeout applied at the
// orchestration layer around it.
func pollCompletion(regs *xdmareg.RegFile, channel uint8, timeout time.Duration) error {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			status := regs.ReadTarget(xdmareg.C2HChannel, channel, channelStatus)
			if status == 0xFFFFFFFF {
				continue
			}
			if status&statusDescCompleted != 0 {
				return
			}
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errPollTimeout
	}
}

// writeOutputFiles splits buffer's received data across one file per
// original -size request, inserting a zero-based index before the final
// '.' of base, matching the upstream naming convention.
func writeOutputFiles(buffer *descriptor.ScatterBuffer, base string, chunksPerTransfer []uint32) error {
	prefix, suffix := splitExt(base)

	chunkIdx := 0
	for i, transactionChunks := range chunksPerTransfer {
		outName := fmt.Sprintf("%s.%d%s", prefix, i, suffix)
		f, err := os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
		if err != nil {
			return fmt.Errorf("open %s: %w", outName, err)
		}

		for j := uint32(0); j < transactionChunks; j, chunkIdx = j+1, chunkIdx+1 {
			length := buffer.ChunkLength(chunkIdx)
			data := buffer.ChunkData(chunkIdx)[:length]
			if _, err := f.Write(data); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", outName, err)
			}
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", outName, err)
		}
	}
	return nil
}

// splitExt splits name into a prefix and a suffix starting at the final
// '.', mirroring pcicat's regex-based filename decomposition.
func splitExt(name string) (prefix, suffix string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}
