// Package adb drives a single Android device over the adb CLI. It is the
// automation channel for the feed robot: input events, ui dumps, clipboard
// and a handful of device queries. All operations are strictly sequential,
// there is exactly one screen and every command depends on the state the
// previous one left behind.
package adb

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/adb")

// Android key event codes used by the robot.
const (
	KeycodeHome     = 3
	KeycodeBack     = 4
	KeycodeDpadUp   = 19
	KeycodeDpadDown = 20
	KeycodePower    = 26
	KeycodeEnter    = 66
)

// ClipperPackage is the helper app that exposes the device clipboard
// over an am broadcast (https://github.com/majido/clipper).
const ClipperPackage = "ca.zgrs.clipper"

// Robot wraps one attached device identified by serial.
type Robot struct {
	serial   string
	adbPath  string
	dumpFile string
}

type Options struct {
	Serial string
	// AdbPath defaults to "adb" resolved from PATH.
	AdbPath string
	// DumpFile is the on-device path uiautomator writes dumps to,
	// defaults to /sdcard/wechat_dump.xml.
	DumpFile string
}

func NewRobot(opts Options) (*Robot, error) {
	if opts.Serial == "" {
		return nil, fmt.Errorf("device serial is required")
	}
	if opts.AdbPath == "" {
		opts.AdbPath = "adb"
	}
	if opts.DumpFile == "" {
		opts.DumpFile = "/sdcard/wechat_dump.xml"
	}
	return &Robot{
		serial:   opts.Serial,
		adbPath:  opts.AdbPath,
		dumpFile: opts.DumpFile,
	}, nil
}

// Shell runs `adb -s <serial> shell <args...>` and returns combined stdout.
func (r *Robot) Shell(ctx context.Context, args ...string) (string, error) {
	ctx, span := tracer.Start(ctx, "Shell")
	defer span.End()
	span.SetAttributes(attribute.String("cmd", strings.Join(args, " ")))

	slog.DebugContext(ctx, "running shell", "serial", r.serial, "args", args)

	full := append([]string{"-s", r.serial, "shell"}, args...)
	out, err := exec.CommandContext(ctx, r.adbPath, full...).CombinedOutput()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return string(out), fmt.Errorf("adb shell %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func (r *Robot) Tap(ctx context.Context, x, y int) error {
	_, err := r.Shell(ctx, "input", "tap", fmt.Sprint(x), fmt.Sprint(y))
	return err
}

func (r *Robot) KeyEvent(ctx context.Context, code int) error {
	_, err := r.Shell(ctx, "input", "keyevent", fmt.Sprint(code))
	return err
}

func (r *Robot) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := r.Shell(ctx,
		"input", "swipe",
		fmt.Sprint(x1), fmt.Sprint(y1),
		fmt.Sprint(x2), fmt.Sprint(y2),
		fmt.Sprint(duration.Milliseconds()),
	)
	return err
}

func (r *Robot) Home(ctx context.Context) error {
	return r.KeyEvent(ctx, KeycodeHome)
}

func (r *Robot) Back(ctx context.Context) error {
	return r.KeyEvent(ctx, KeycodeBack)
}

// Snapshot dumps the current view hierarchy and parses it. The dump file
// is rewritten on device every call; the returned snapshot never changes
// after this returns.
func (r *Robot) Snapshot(ctx context.Context) (*uitree.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Snapshot")
	defer span.End()

	if _, err := r.Shell(ctx, "uiautomator", "dump", r.dumpFile); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "uiautomator dump failed")
		return nil, err
	}
	raw, err := r.Shell(ctx, "cat", r.dumpFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading dump file failed")
		return nil, err
	}
	snap, err := uitree.Parse([]byte(raw))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dump parse failed")
		return nil, err
	}
	return snap, nil
}

func (r *Robot) IsScreenOn(ctx context.Context) (bool, error) {
	out, err := r.Shell(ctx, "dumpsys", "input_method")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "mInteractive=true") ||
		strings.Contains(out, "mScreenOn=true"), nil
}

func (r *Robot) ScreenOn(ctx context.Context) error {
	on, err := r.IsScreenOn(ctx)
	if err != nil {
		return err
	}
	if !on {
		return r.KeyEvent(ctx, KeycodePower)
	}
	return nil
}

func (r *Robot) ScreenOff(ctx context.Context) error {
	on, err := r.IsScreenOn(ctx)
	if err != nil {
		return err
	}
	if on {
		return r.KeyEvent(ctx, KeycodePower)
	}
	return nil
}

func (r *Robot) IsAppInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := r.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "package:"+pkg), nil
}

// LaunchApp starts the main launcher activity of a package.
func (r *Robot) LaunchApp(ctx context.Context, pkg string) error {
	_, err := r.Shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// EnsureClipboard verifies the clipper helper is installed and brings it
// up so clipboard broadcasts are answered.
func (r *Robot) EnsureClipboard(ctx context.Context) error {
	installed, err := r.IsAppInstalled(ctx, ClipperPackage)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("clipper app %s is not installed on device %s", ClipperPackage, r.serial)
	}
	return r.LaunchApp(ctx, ClipperPackage)
}

var clipperDataRegex = regexp.MustCompile(`data="((?s).*?)"`)

// Clipboard reads the device clipboard via the clipper broadcast. An empty
// string is returned when the clipboard is empty or clipper is not running;
// callers treat empty values as not-yet-copied and retry.
func (r *Robot) Clipboard(ctx context.Context) (string, error) {
	out, err := r.Shell(ctx, "am", "broadcast", "-a", "clipper.get")
	if err != nil {
		return "", err
	}
	groups := clipperDataRegex.FindStringSubmatch(out)
	if len(groups) < 2 {
		slog.WarnContext(ctx, "clipboard broadcast returned no data, is clipper running?", "serial", r.serial)
		return "", nil
	}
	return groups[1], nil
}

// Timezone reads the device timezone property; it falls back to UTC when
// the property is unset or unknown so timestamp math stays deterministic.
func (r *Robot) Timezone(ctx context.Context) (*time.Location, error) {
	out, err := r.Shell(ctx, "getprop", "persist.sys.timezone")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		slog.WarnContext(ctx, "device timezone property unset, falling back to UTC", "serial", r.serial)
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.WarnContext(ctx, "unknown device timezone, falling back to UTC", "tz", name, "err", err)
		return time.UTC, nil
	}
	return loc, nil
}
