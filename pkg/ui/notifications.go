package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"hermes/pkg/config"
	"hermes/pkg/models"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("Hermes").Show($toast)
	`, psQuote(title), psQuote(message))

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Notifier raises alerts for discoveries and rate limiting
type Notifier struct {
	cfg    config.NotificationConfig
	sender NotificationSender
	out    io.Writer
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender
	if strings.EqualFold(cfg.NotificationType, "desktop") {
		switch runtime.GOOS {
		case "linux":
			sender = &LinuxNotificationSender{}
		case "darwin":
			sender = &MacOSNotificationSender{}
		case "windows":
			sender = &WindowsNotificationSender{}
		}
	}

	return &Notifier{cfg: cfg, sender: sender, out: os.Stdout}
}

// SetOutput redirects the terminal bell and banner
func (n *Notifier) SetOutput(w io.Writer) {
	n.out = w
}

// NotifyDiscovery alerts about newly found accounts
func (n *Notifier) NotifyDiscovery(accounts []models.UserAccount) {
	if !n.active() || !n.cfg.OnDiscovery || len(accounts) == 0 {
		return
	}

	handles := make([]string, 0, len(accounts))
	for _, a := range accounts {
		handles = append(handles, "@"+a.Username)
	}
	n.send(fmt.Sprintf("Found %d new username(s)", len(accounts)), strings.Join(handles, ", "))
}

// NotifyRateLimit alerts that the remote service started throttling
func (n *Notifier) NotifyRateLimit(hits int64) {
	if !n.active() || !n.cfg.OnRateLimit {
		return
	}
	n.send("Rate limited", fmt.Sprintf("%d rate limit hit(s) this run", hits))
}

func (n *Notifier) active() bool {
	return n != nil && n.cfg.Enabled && !strings.EqualFold(n.cfg.NotificationType, "none")
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// not critical
		_ = n.sender.Send(title, message)
		return
	}
	fmt.Fprintf(n.out, "\a%s: %s\n", Cyan(title), Yellow(message))
}
