package probe

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
)

// Vendor identifies which vendor tool answers temperature/power queries.
// The choice is made once at construction and never changes.
type Vendor int

const (
	// VendorNone means neither configured executable was found; probing is
	// disabled and every reading is the zero sentinel.
	VendorNone Vendor = iota
	VendorIntel
	VendorXilinx
)

// String returns the vendor name.
func (v Vendor) String() string {
	switch v {
	case VendorIntel:
		return "intel"
	case VendorXilinx:
		return "xilinx"
	default:
		return "none"
	}
}

var (
	reIntelTemp  = regexp.MustCompile(`^.*FPGA Core TEMP \s+: (\d+)`)
	reIntelPower = regexp.MustCompile(`^.*Total Input Power \s+: (\d+)\.`)

	reXilinxTemp  = regexp.MustCompile(`^FPGA TEMP`)
	reXilinxPower = regexp.MustCompile(`^Card Power`)
	reXilinxValue = regexp.MustCompile(`^(\d+)\s+`)
)

// runner executes the vendor command and returns its stdout. Replaced in
// tests to avoid spawning processes.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Prober samples temperature and power for one FPGA device by running the
// vendor query command and scanning its text output. A failed command or
// unmatched output yields the zero sentinel, never an error.
type Prober struct {
	vendor Vendor
	cmd    string
	run    runner
}

// New selects the vendor protocol by checking which configured executable
// exists and is executable, Intel first. When neither is usable the
// returned prober is disabled and reports zero for every reading.
func New(intelCmd, xilinxCmd string) *Prober {
	p := &Prober{run: runCommand}

	switch {
	case isExecutable(intelCmd):
		p.vendor = VendorIntel
		p.cmd = intelCmd
	case isExecutable(xilinxCmd):
		p.vendor = VendorXilinx
		p.cmd = xilinxCmd
	default:
		slog.Warn("no usable vendor tool found, temperature/power probing disabled",
			slog.String("intel_cmd", intelCmd),
			slog.String("xilinx_cmd", xilinxCmd))
	}

	return p
}

// Vendor returns the selected vendor protocol.
func (p *Prober) Vendor() Vendor {
	return p.vendor
}

// Enabled reports whether a vendor tool was found at construction.
func (p *Prober) Enabled() bool {
	return p.vendor != VendorNone
}

// Temperature returns the current core temperature of the device at the
// given index, or 0 when it cannot be obtained.
func (p *Prober) Temperature(ctx context.Context, idx int) int64 {
	switch p.vendor {
	case VendorIntel:
		return p.singleLine(ctx, reIntelTemp, "temp", "--device", strconv.Itoa(idx))
	case VendorXilinx:
		return p.headingValue(ctx, reXilinxTemp, "query", "-d", strconv.Itoa(idx))
	default:
		return 0
	}
}

// Power returns the current power draw in watts of the device at the given
// index, or 0 when it cannot be obtained.
func (p *Prober) Power(ctx context.Context, idx int) int64 {
	switch p.vendor {
	case VendorIntel:
		return p.singleLine(ctx, reIntelPower, "power", "--device", strconv.Itoa(idx))
	case VendorXilinx:
		return p.headingValue(ctx, reXilinxPower, "query", "-d", strconv.Itoa(idx))
	default:
		return 0
	}
}

// singleLine runs the command and applies the Intel protocol: the first
// line matching the pattern yields the captured numeric group.
func (p *Prober) singleLine(ctx context.Context, re *regexp.Regexp, args ...string) int64 {
	out, err := p.run(ctx, p.cmd, args...)
	if err != nil {
		slog.Debug("vendor command failed", slog.String("cmd", p.cmd), slog.String("error", err.Error()))
		return 0
	}
	return parseSingleLine(out, re)
}

// headingValue runs the command and applies the Xilinx protocol: scan for a
// heading line, then take the leading numeric token of the next value line.
func (p *Prober) headingValue(ctx context.Context, heading *regexp.Regexp, args ...string) int64 {
	out, err := p.run(ctx, p.cmd, args...)
	if err != nil {
		slog.Debug("vendor command failed", slog.String("cmd", p.cmd), slog.String("error", err.Error()))
		return 0
	}
	return parseHeadingValue(out, heading)
}

func parseSingleLine(out []byte, re *regexp.Regexp) int64 {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if m := re.FindStringSubmatch(scanner.Text()); m != nil {
			v, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}

func parseHeadingValue(out []byte, heading *regexp.Regexp) int64 {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	headingFound := false
	for scanner.Scan() {
		line := scanner.Text()
		if heading.MatchString(line) {
			headingFound = true
			continue
		}
		if m := reXilinxValue.FindStringSubmatch(line); m != nil && headingFound {
			headingFound = false
			v, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}

// isExecutable reports whether path exists, is a regular file, and has an
// execute bit set.
func isExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
