package textfs

import (
	"os"
	"path/filepath"
)

// Layout resolves the standard {data_dir} subpaths from spec.md §6.5.
type Layout struct {
	DataDir string
}

func (l Layout) SkillsDir() string                { return filepath.Join(l.DataDir, "skills") }
func (l Layout) SkillDir(name string) string      { return filepath.Join(l.SkillsDir(), name) }
func (l Layout) WorkspaceDir() string             { return filepath.Join(l.DataDir, "workspace") }
func (l Layout) InboxDir() string                 { return filepath.Join(l.WorkspaceDir(), "inbox") }
func (l Layout) DiscoveryDir() string             { return filepath.Join(l.WorkspaceDir(), "discovery") }
func (l Layout) BuildsDir() string                { return filepath.Join(l.WorkspaceDir(), "builds") }
func (l Layout) ProjectDir(project string) string { return filepath.Join(l.BuildsDir(), project) }
func (l Layout) ProjectsDir() string              { return filepath.Join(l.DataDir, "projects") }
func (l Layout) HeartbeatFile() string            { return filepath.Join(l.DataDir, "HEARTBEAT.md") }
func (l Layout) HeartbeatSuppressFile() string    { return filepath.Join(l.DataDir, "HEARTBEAT.suppress") }
func (l Layout) BugLogFile() string               { return filepath.Join(l.DataDir, "BUG.md") }

// DiscoverySessionFile returns the per-sender discovery session path,
// sanitizing the sender id into a safe filename.
func (l Layout) DiscoverySessionFile(senderID string) string {
	return filepath.Join(l.DiscoveryDir(), SanitizeSenderID(senderID)+".md")
}

// SetupSessionFile returns the per-sender setup session path, kept
// alongside discovery sessions with a distinguishing suffix.
func (l Layout) SetupSessionFile(senderID string) string {
	return filepath.Join(l.DiscoveryDir(), SanitizeSenderID(senderID)+".setup.md")
}

// EnsureDirs creates every standing directory the layout needs, safe to
// call repeatedly at startup.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.SkillsDir(), l.WorkspaceDir(), l.InboxDir(), l.DiscoveryDir(), l.BuildsDir(), l.ProjectsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// PurgeInbox removes every file under the inbox directory, used at
// startup to clean up orphaned attachments left by a crash mid-message.
func (l Layout) PurgeInbox() error {
	entries, err := os.ReadDir(l.InboxDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.InboxDir(), e.Name())); err != nil {
			return err
		}
	}
	return nil
}
