package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/daybookhq/daybook/internal/model"
)

// FileStore persists workspaces as one JSON file per account.
//
// Layout under the data directory:
//
//	accounts.json            account registry
//	workspaces/<id>.json     one workspace blob per account
//
// Writes go to a temp file first and are renamed into place, so a crash
// mid-write cannot corrupt the previous durable value. The store does not
// implement TaskDeleter; deletions reach it through full workspace writes.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// OpenFile opens (or creates) a file store rooted at dir.
func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "workspaces"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) accountsPath() string {
	return filepath.Join(fs.dir, "accounts.json")
}

func (fs *FileStore) workspacePath(accountID string) string {
	return filepath.Join(fs.dir, "workspaces", accountID+".json")
}

func (fs *FileStore) Load(ctx context.Context, accountID string) (*model.Workspace, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.workspacePath(accountID))
	if os.IsNotExist(err) {
		return model.DefaultWorkspace(), nil
	}
	if err != nil {
		return nil, &unavailableError{cause: err}
	}

	var ws model.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, &unavailableError{cause: fmt.Errorf("corrupt workspace file: %w", err)}
	}
	if ws.Tasks == nil {
		ws.Tasks = []*model.Task{}
	}
	if ws.Team == nil {
		ws.Team = []string{model.Self}
	}
	return &ws, nil
}

func (fs *FileStore) Save(ctx context.Context, accountID string, ws *model.Workspace) error {
	payload, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := writeFileAtomic(fs.workspacePath(accountID), payload); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}

func (fs *FileStore) SaveAccount(ctx context.Context, rec AccountRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readAccounts()
	if err != nil {
		return err
	}
	for _, existing := range recs {
		if existing.Account.Contact == rec.Account.Contact {
			return ErrConflict
		}
	}
	recs = append(recs, rec)
	return fs.writeAccounts(recs)
}

func (fs *FileStore) AccountByContact(ctx context.Context, contact string) (AccountRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readAccounts()
	if err != nil {
		return AccountRecord{}, err
	}
	for _, rec := range recs {
		if rec.Account.Contact == contact {
			return rec, nil
		}
	}
	return AccountRecord{}, ErrNotFound
}

func (fs *FileStore) AccountByID(ctx context.Context, id string) (model.Account, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readAccounts()
	if err != nil {
		return model.Account{}, err
	}
	for _, rec := range recs {
		if rec.Account.ID == id {
			return rec.Account, nil
		}
	}
	return model.Account{}, ErrNotFound
}

func (fs *FileStore) Export(ctx context.Context) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readAccounts()
	if err != nil {
		return "", err
	}
	snap := &Snapshot{Accounts: recs, Workspaces: map[string]*model.Workspace{}}

	entries, err := os.ReadDir(filepath.Join(fs.dir, "workspaces"))
	if err != nil {
		return "", &unavailableError{cause: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		data, err := os.ReadFile(fs.workspacePath(id))
		if err != nil {
			return "", &unavailableError{cause: err}
		}
		var ws model.Workspace
		if err := json.Unmarshal(data, &ws); err != nil {
			return "", &unavailableError{cause: fmt.Errorf("corrupt workspace file %s: %w", entry.Name(), err)}
		}
		snap.Workspaces[id] = &ws
	}

	return EncodeSnapshot(snap)
}

func (fs *FileStore) Import(ctx context.Context, encoded string) error {
	snap, err := DecodeSnapshot(encoded)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Stage everything in a scratch directory first. The live tree is only
	// touched by the renames at the end, so a failure mid-import leaves the
	// previous state intact.
	staging, err := os.MkdirTemp(fs.dir, "import-*")
	if err != nil {
		return &unavailableError{cause: err}
	}
	defer os.RemoveAll(staging)

	stagedWorkspaces := filepath.Join(staging, "workspaces")
	if err := os.Mkdir(stagedWorkspaces, 0755); err != nil {
		return &unavailableError{cause: err}
	}
	for id, ws := range snap.Workspaces {
		payload, err := json.MarshalIndent(ws, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal workspace %s: %w", id, err)
		}
		if err := os.WriteFile(filepath.Join(stagedWorkspaces, id+".json"), payload, 0644); err != nil {
			return &unavailableError{cause: err}
		}
	}
	payload, err := json.MarshalIndent(snap.Accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "accounts.json"), payload, 0644); err != nil {
		return &unavailableError{cause: err}
	}

	// Swap the workspaces directory, keeping the old one until the new one
	// is in place so the swap can be undone.
	liveWorkspaces := filepath.Join(fs.dir, "workspaces")
	oldWorkspaces := filepath.Join(staging, "workspaces.old")
	if err := os.Rename(liveWorkspaces, oldWorkspaces); err != nil {
		return &unavailableError{cause: err}
	}
	if err := os.Rename(stagedWorkspaces, liveWorkspaces); err != nil {
		_ = os.Rename(oldWorkspaces, liveWorkspaces)
		return &unavailableError{cause: err}
	}
	if err := os.Rename(filepath.Join(staging, "accounts.json"), fs.accountsPath()); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}

func (fs *FileStore) Close() error {
	return nil
}

// Watch emits the account ID of any workspace file changed by another
// process (for example an admin import while a session is live). The
// channel closes when ctx is cancelled.
func (fs *FileStore) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Join(fs.dir, "workspaces")); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch workspaces directory: %w", err)
	}

	changed := make(chan string, 16)
	go func() {
		defer close(changed)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, ".json") {
					continue // ignore temp files
				}
				select {
				case changed <- strings.TrimSuffix(name, ".json"):
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changed, nil
}

// readAccounts loads the registry. Callers hold fs.mu.
func (fs *FileStore) readAccounts() ([]AccountRecord, error) {
	data, err := os.ReadFile(fs.accountsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &unavailableError{cause: err}
	}
	var recs []AccountRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, &unavailableError{cause: fmt.Errorf("corrupt accounts file: %w", err)}
	}
	return recs, nil
}

// writeAccounts replaces the registry. Callers hold fs.mu.
func (fs *FileStore) writeAccounts(recs []AccountRecord) error {
	payload, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	if err := writeFileAtomic(fs.accountsPath(), payload); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place. The previous value survives any failure before
// the rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
