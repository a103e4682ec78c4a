// Package orchestrator implements the sync engine that reconciles the
// local store with the cloud store under concurrent edits, realtime push
// notifications, and intermittent connectivity.
//
// The orchestrator is a per-session state machine:
//
//	LocalOnly -> CloudLoading -> CloudActive -> LocalOnly
//
// Every local mutation writes through to the local store synchronously and
// updates in-memory state optimistically, in any state. When CloudActive,
// the corresponding cloud write is issued asynchronously and never blocks
// or fails the optimistic update. Incoming realtime events are consumed
// from a single ordered inbox and merged with last-writer-wins on the note
// UpdatedAt timestamp; folders carry no merge timestamp, so the last event
// applied always wins (a documented lower guarantee than note sync).
//
// A cloud outage degrades the engine to local-only with a stale cloud
// cache; no failure in this package is fatal to the process.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/driftnotes/drift/internal/backup"
	"github.com/driftnotes/drift/internal/entity"
	"github.com/driftnotes/drift/internal/remote"
	"github.com/driftnotes/drift/internal/store"
)

// State is the orchestrator's position in the session lifecycle.
type State int

const (
	// StateLocalOnly means no identity is present; all data is local.
	StateLocalOnly State = iota
	// StateCloudLoading means an identity is present and the initial
	// cloud fetch is in flight.
	StateCloudLoading
	// StateCloudActive is the steady state with the realtime
	// subscription live (possibly degraded, if the initial fetch failed).
	StateCloudActive
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLocalOnly:
		return "local-only"
	case StateCloudLoading:
		return "cloud-loading"
	case StateCloudActive:
		return "cloud-active"
	default:
		return "unknown"
	}
}

// CloudStore is the remote surface the orchestrator drives. *remote.Client
// satisfies it through the Cloud adapter; tests substitute a fake.
type CloudStore interface {
	GetNotes(ctx context.Context) ([]entity.Note, error)
	GetFolders(ctx context.Context) ([]entity.Folder, error)
	GetUserSettings(ctx context.Context, userID string) (*entity.Settings, error)
	UpsertNote(ctx context.Context, n entity.Note, ownerID string) error
	UpsertFolder(ctx context.Context, f entity.Folder, ownerID string) error
	DeleteNote(ctx context.Context, id string) error
	DeleteFolder(ctx context.Context, id string) error
	SaveUserSettings(ctx context.Context, settings entity.Settings, userID string) error
	Subscribe(userID string) Subscription
}

// Subscription is the realtime channel surface consumed by the inbox.
type Subscription interface {
	Events() <-chan remote.ChangeEvent
	Unsubscribe()
}

// remoteCloud adapts *remote.Client to CloudStore.
type remoteCloud struct {
	*remote.Client
}

func (r remoteCloud) Subscribe(userID string) Subscription {
	return r.Client.Subscribe(userID)
}

// Cloud wraps a remote client for use as the orchestrator's CloudStore.
func Cloud(c *remote.Client) CloudStore {
	return remoteCloud{c}
}

// Snapshot is a point-in-time copy of the orchestrator's state, handed to
// the rendering layer. Slices are copies and safe to retain.
type Snapshot struct {
	State      State
	Identity   *entity.Identity
	Notes      []entity.Note
	Folders    []entity.Folder
	Settings   entity.Settings
	OpenNoteID string
}

// Orchestrator owns the in-memory note/folder collections and reconciles
// them between the local store and the cloud store. All exported methods
// are safe for concurrent use; internally a single mutex serializes every
// mutation, so local writes are applied in the order they were issued.
type Orchestrator struct {
	store  *store.Store
	cloud  CloudStore // nil means permanently local-only
	logger *log.Logger

	mu         sync.Mutex
	state      State
	identity   *entity.Identity
	notes      []entity.Note
	folders    []entity.Folder
	settings   entity.Settings
	openNoteID string

	sub    Subscription
	subGen int // bumped on every teardown so stale inbox events are dropped

	inboxWG  sync.WaitGroup
	remoteWG sync.WaitGroup // in-flight fire-and-forget cloud writes

	watchers []func(Snapshot)
}

// New creates an orchestrator in LocalOnly state with the local store's
// contents loaded immediately, so callers are interactive before any
// network round trip. cloud may be nil for a build without a configured
// backend. If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, cloud CloudStore, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	return &Orchestrator{
		store:    st,
		cloud:    cloud,
		logger:   logger,
		state:    StateLocalOnly,
		notes:    st.Notes(),
		folders:  st.Folders(),
		settings: st.Settings(),
	}
}

// Watch registers an observer called with a fresh snapshot after every
// state change. Observers run outside the orchestrator lock and must not
// block for long.
func (o *Orchestrator) Watch(fn func(Snapshot)) {
	o.mu.Lock()
	o.watchers = append(o.watchers, fn)
	o.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      o.state,
		Notes:      append([]entity.Note(nil), o.notes...),
		Folders:    append([]entity.Folder(nil), o.folders...),
		Settings:   o.settings,
		OpenNoteID: o.openNoteID,
	}
	if o.identity != nil {
		id := *o.identity
		snap.Identity = &id
	}
	return snap
}

// notify delivers a snapshot to every registered observer.
func (o *Orchestrator) notify() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	watchers := append(([]func(Snapshot))(nil), o.watchers...)
	o.mu.Unlock()

	for _, fn := range watchers {
		fn(snap)
	}
}

// SignIn transitions to CloudLoading, fetches notes, folders, and settings
// concurrently, and enters CloudActive.
//
// On success the in-memory collections are replaced wholesale with the
// fetched ones, then bulk-persisted locally as a backup. The cloud is
// authoritative at login, even over newer local-only edits; this is a
// deliberate simplification.
// On fetch failure the previous state is kept and CloudActive is entered
// degraded, so the caller is never left blocked.
func (o *Orchestrator) SignIn(ctx context.Context, id entity.Identity) {
	o.mu.Lock()
	o.teardownSubscriptionLocked()
	idCopy := id
	o.identity = &idCopy
	o.state = StateCloudLoading
	o.mu.Unlock()
	o.notify()

	var (
		notes    []entity.Note
		folders  []entity.Folder
		settings *entity.Settings
		notesErr, foldersErr, settingsErr error
	)

	if o.cloud != nil {
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			notes, notesErr = o.cloud.GetNotes(ctx)
		}()
		go func() {
			defer wg.Done()
			folders, foldersErr = o.cloud.GetFolders(ctx)
		}()
		go func() {
			defer wg.Done()
			settings, settingsErr = o.cloud.GetUserSettings(ctx, id.ID)
		}()
		wg.Wait()
	}

	o.mu.Lock()
	// A sign-out (or another sign-in) may have raced the fetch.
	if o.identity == nil || o.identity.ID != id.ID || o.state != StateCloudLoading {
		o.mu.Unlock()
		return
	}

	switch {
	case o.cloud == nil:
		o.logger.Printf("No cloud store configured; entering degraded cloud mode")
	case notesErr != nil || foldersErr != nil:
		o.logger.Printf("Cloud fetch failed (notes: %v, folders: %v); keeping previous state",
			notesErr, foldersErr)
	default:
		if notes == nil {
			notes = []entity.Note{}
		}
		if folders == nil {
			folders = []entity.Folder{}
		}
		entity.SortNotes(notes)
		entity.SortFolders(folders)
		o.notes = notes
		o.folders = folders
		if err := o.store.PutAllNotes(notes); err != nil {
			o.logger.Printf("Warning: failed to persist fetched notes: %v", err)
		}
		if err := o.store.PutAllFolders(folders); err != nil {
			o.logger.Printf("Warning: failed to persist fetched folders: %v", err)
		}
		if o.openNoteID != "" && o.findNoteLocked(o.openNoteID) < 0 {
			o.openNoteID = ""
		}
	}

	if settingsErr != nil {
		o.logger.Printf("Cloud settings fetch failed: %v", settingsErr)
	} else if settings != nil {
		o.settings = *settings
		if err := o.store.PutSettings(*settings); err != nil {
			o.logger.Printf("Warning: failed to persist fetched settings: %v", err)
		}
	}

	if o.cloud != nil {
		o.sub = o.cloud.Subscribe(id.ID)
		o.subGen++
		gen := o.subGen
		events := o.sub.Events()
		o.inboxWG.Add(1)
		go o.consume(gen, events)
	}

	o.state = StateCloudActive
	o.mu.Unlock()
	o.notify()
}

// SignOut tears down the realtime subscription, discards cloud-origin
// in-memory state, reloads the local store, and enters LocalOnly.
func (o *Orchestrator) SignOut() {
	o.mu.Lock()
	o.teardownSubscriptionLocked()
	o.identity = nil
	o.notes = o.store.Notes()
	o.folders = o.store.Folders()
	o.settings = o.store.Settings()
	if o.openNoteID != "" && o.findNoteLocked(o.openNoteID) < 0 {
		o.openNoteID = ""
	}
	o.state = StateLocalOnly
	o.mu.Unlock()
	o.notify()
}

// Close tears down the subscription and waits for the inbox and any
// in-flight cloud writes to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.teardownSubscriptionLocked()
	o.mu.Unlock()
	o.inboxWG.Wait()
	o.remoteWG.Wait()
}

// Flush waits for in-flight fire-and-forget cloud writes. Used by
// one-shot CLI commands so the process doesn't exit mid-write.
func (o *Orchestrator) Flush() {
	o.remoteWG.Wait()
}

// teardownSubscriptionLocked closes the realtime channel exactly once per
// identity transition. Bumping subGen makes the old inbox drop whatever it
// had already buffered.
func (o *Orchestrator) teardownSubscriptionLocked() {
	if o.sub == nil {
		return
	}
	sub := o.sub
	o.sub = nil
	o.subGen++
	sub.Unsubscribe()
}

// consume is the single ordered inbox: events are processed one at a time
// so a partial merge is never observed.
func (o *Orchestrator) consume(gen int, events <-chan remote.ChangeEvent) {
	defer o.inboxWG.Done()
	for event := range events {
		o.applyEvent(gen, event)
	}
}

// applyEvent merges one realtime change event into local state.
//
// Note inserts/updates are adopted only when the local copy is not newer
// (local.UpdatedAt <= event.UpdatedAt); otherwise the event is discarded
// silently, since it is either stale or an echo of this client's own write.
// That comparison is the sole loop-suppression mechanism: no origin tag is
// needed because an echo compares equal and adopting it changes nothing,
// and adoption never triggers a further cloud write.
func (o *Orchestrator) applyEvent(gen int, event remote.ChangeEvent) {
	o.mu.Lock()
	if gen != o.subGen || o.state != StateCloudActive {
		o.mu.Unlock()
		return
	}

	changed := false
	switch {
	case event.Note != nil:
		changed = o.applyNoteEventLocked(event.Kind, *event.Note)
	case event.Folder != nil:
		changed = o.applyFolderEventLocked(event.Kind, *event.Folder)
	}
	o.mu.Unlock()

	if changed {
		o.notify()
	}
}

func (o *Orchestrator) applyNoteEventLocked(kind remote.EventKind, n entity.Note) bool {
	if kind == remote.EventDelete {
		if err := o.store.RemoveNote(n.ID); err != nil {
			o.logger.Printf("Warning: failed to remove note %s locally: %v", n.ID, err)
		}
		idx := o.findNoteLocked(n.ID)
		if idx < 0 {
			return false
		}
		o.notes = append(o.notes[:idx], o.notes[idx+1:]...)
		if o.openNoteID == n.ID {
			o.openNoteID = ""
		}
		return true
	}

	idx := o.findNoteLocked(n.ID)
	if idx >= 0 && o.notes[idx].UpdatedAt > n.UpdatedAt {
		// Local copy is newer; drop the stale event.
		return false
	}

	if idx >= 0 {
		o.notes[idx] = n
	} else {
		o.notes = append(o.notes, n)
	}
	entity.SortNotes(o.notes)
	if err := o.store.PutNote(n); err != nil {
		o.logger.Printf("Warning: failed to persist note %s locally: %v", n.ID, err)
	}
	return true
}

// applyFolderEventLocked applies a folder event. Folders have no merge
// timestamp: the last event applied wins.
func (o *Orchestrator) applyFolderEventLocked(kind remote.EventKind, f entity.Folder) bool {
	if kind == remote.EventDelete {
		if err := o.store.RemoveFolder(f.ID); err != nil {
			o.logger.Printf("Warning: failed to remove folder %s locally: %v", f.ID, err)
		}
		idx := o.findFolderLocked(f.ID)
		if idx < 0 {
			return false
		}
		o.folders = append(o.folders[:idx], o.folders[idx+1:]...)
		return true
	}

	idx := o.findFolderLocked(f.ID)
	if idx >= 0 {
		o.folders[idx] = f
	} else {
		o.folders = append(o.folders, f)
	}
	entity.SortFolders(o.folders)
	if err := o.store.PutFolder(f); err != nil {
		o.logger.Printf("Warning: failed to persist folder %s locally: %v", f.ID, err)
	}
	return true
}

func (o *Orchestrator) findNoteLocked(id string) int {
	for i := range o.notes {
		if o.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) findFolderLocked(id string) int {
	for i := range o.folders {
		if o.folders[i].ID == id {
			return i
		}
	}
	return -1
}

// cloudActiveLocked reports whether cloud writes should be issued.
func (o *Orchestrator) cloudActiveLocked() bool {
	return o.cloud != nil && o.state == StateCloudActive && o.identity != nil
}

// pushNoteLocked issues an async cloud upsert. Fire-and-forget: failures
// are logged, never retried, and never reach the optimistic update path.
func (o *Orchestrator) pushNoteLocked(n entity.Note) {
	if !o.cloudActiveLocked() {
		return
	}
	owner := o.identity.ID
	o.remoteWG.Add(1)
	go func() {
		defer o.remoteWG.Done()
		if err := o.cloud.UpsertNote(context.Background(), n, owner); err != nil {
			o.logger.Printf("Warning: cloud note upsert failed: %v", err)
		}
	}()
}

func (o *Orchestrator) pushFolderLocked(f entity.Folder) {
	if !o.cloudActiveLocked() {
		return
	}
	owner := o.identity.ID
	o.remoteWG.Add(1)
	go func() {
		defer o.remoteWG.Done()
		if err := o.cloud.UpsertFolder(context.Background(), f, owner); err != nil {
			o.logger.Printf("Warning: cloud folder upsert failed: %v", err)
		}
	}()
}

func (o *Orchestrator) pushNoteDeleteLocked(id string) {
	if !o.cloudActiveLocked() {
		return
	}
	o.remoteWG.Add(1)
	go func() {
		defer o.remoteWG.Done()
		if err := o.cloud.DeleteNote(context.Background(), id); err != nil {
			o.logger.Printf("Warning: cloud note delete failed: %v", err)
		}
	}()
}

func (o *Orchestrator) pushFolderDeleteLocked(id string) {
	if !o.cloudActiveLocked() {
		return
	}
	o.remoteWG.Add(1)
	go func() {
		defer o.remoteWG.Done()
		if err := o.cloud.DeleteFolder(context.Background(), id); err != nil {
			o.logger.Printf("Warning: cloud folder delete failed: %v", err)
		}
	}()
}

// CreateNote mints a note, persists it locally, selects it, and issues
// the cloud upsert when active.
func (o *Orchestrator) CreateNote(folderID string, typ entity.NoteType) entity.Note {
	n := entity.NewNote(folderID, typ)

	o.mu.Lock()
	if err := o.store.PutNote(n); err != nil {
		o.logger.Printf("Warning: failed to persist new note: %v", err)
	}
	o.notes = append(o.notes, n)
	entity.SortNotes(o.notes)
	o.openNoteID = n.ID
	o.pushNoteLocked(n)
	o.mu.Unlock()
	o.notify()
	return n
}

// SaveNote fully replaces a note by id with a fresh, strictly increasing
// UpdatedAt stamp. Callers supply the complete entity; there is no
// partial-field merge. Returns the stamped note.
func (o *Orchestrator) SaveNote(n entity.Note) entity.Note {
	o.mu.Lock()
	n = o.saveNoteLocked(n)
	o.mu.Unlock()
	o.notify()
	return n
}

func (o *Orchestrator) saveNoteLocked(n entity.Note) entity.Note {
	n.SetDefaults()
	if idx := o.findNoteLocked(n.ID); idx >= 0 && o.notes[idx].UpdatedAt > n.UpdatedAt {
		// Touch from the highest timestamp seen for this id so the
		// per-id monotonic invariant survives stale caller copies.
		n.UpdatedAt = o.notes[idx].UpdatedAt
	}
	n.Touch()

	if err := o.store.PutNote(n); err != nil {
		o.logger.Printf("Warning: failed to persist note %s: %v", n.ID, err)
	}
	if idx := o.findNoteLocked(n.ID); idx >= 0 {
		o.notes[idx] = n
	} else {
		o.notes = append(o.notes, n)
	}
	entity.SortNotes(o.notes)
	o.pushNoteLocked(n)
	return n
}

// MoveNote re-parents a note into folderID (empty means root).
func (o *Orchestrator) MoveNote(id, folderID string) error {
	o.mu.Lock()
	idx := o.findNoteLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("note %s not found", id)
	}
	n := o.notes[idx]
	n.FolderID = folderID
	o.saveNoteLocked(n)
	o.mu.Unlock()
	o.notify()
	return nil
}

// DeleteNote removes a note from both stores. Deleting an absent id is a
// no-op locally and remotely.
func (o *Orchestrator) DeleteNote(id string) {
	o.mu.Lock()
	if err := o.store.RemoveNote(id); err != nil {
		o.logger.Printf("Warning: failed to remove note %s: %v", id, err)
	}
	if idx := o.findNoteLocked(id); idx >= 0 {
		o.notes = append(o.notes[:idx], o.notes[idx+1:]...)
	}
	if o.openNoteID == id {
		o.openNoteID = ""
	}
	o.pushNoteDeleteLocked(id)
	o.mu.Unlock()
	o.notify()
}

// CreateFolder mints and persists a folder.
func (o *Orchestrator) CreateFolder(name, parentID string) (entity.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Folder{}, fmt.Errorf("folder name is required")
	}

	f := entity.NewFolder(name, parentID)
	o.mu.Lock()
	if err := o.store.PutFolder(f); err != nil {
		o.logger.Printf("Warning: failed to persist new folder: %v", err)
	}
	o.folders = append(o.folders, f)
	entity.SortFolders(o.folders)
	o.pushFolderLocked(f)
	o.mu.Unlock()
	o.notify()
	return f, nil
}

// RenameFolder sets a folder's name.
func (o *Orchestrator) RenameFolder(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("folder name is required")
	}

	o.mu.Lock()
	idx := o.findFolderLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("folder %s not found", id)
	}
	f := o.folders[idx]
	f.Name = name
	o.folders[idx] = f
	if err := o.store.PutFolder(f); err != nil {
		o.logger.Printf("Warning: failed to persist folder %s: %v", id, err)
	}
	o.pushFolderLocked(f)
	o.mu.Unlock()
	o.notify()
	return nil
}

// MoveFolder re-parents a folder under parentID (empty means root). A move
// that would make the folder its own ancestor is rejected with no state
// change; the parent graph must stay acyclic.
func (o *Orchestrator) MoveFolder(id, parentID string) error {
	o.mu.Lock()
	idx := o.findFolderLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("folder %s not found", id)
	}
	if parentID != "" {
		if o.findFolderLocked(parentID) < 0 {
			o.mu.Unlock()
			return fmt.Errorf("target folder %s not found", parentID)
		}
		if o.isDescendantLocked(parentID, id) {
			o.mu.Unlock()
			return fmt.Errorf("cannot move folder %s under its own descendant", id)
		}
	}

	f := o.folders[idx]
	f.ParentID = parentID
	o.folders[idx] = f
	if err := o.store.PutFolder(f); err != nil {
		o.logger.Printf("Warning: failed to persist folder %s: %v", id, err)
	}
	o.pushFolderLocked(f)
	o.mu.Unlock()
	o.notify()
	return nil
}

// isDescendantLocked reports whether candidate is ancestorID itself or
// sits anywhere below it in the parent graph.
func (o *Orchestrator) isDescendantLocked(candidate, ancestorID string) bool {
	seen := make(map[string]bool)
	for current := candidate; current != ""; {
		if current == ancestorID {
			return true
		}
		if seen[current] {
			// Pre-existing cycle in stored data; stop walking.
			return false
		}
		seen[current] = true
		idx := o.findFolderLocked(current)
		if idx < 0 {
			return false
		}
		current = o.folders[idx].ParentID
	}
	return false
}

// DeleteFolder removes a folder and orphans its children rather than
// deleting them: every note and sub-folder pointing at it has that
// reference cleared. Orphaned entities are individually re-upserted to the
// cloud so the remote copies don't retain a dangling pointer.
func (o *Orchestrator) DeleteFolder(id string) {
	o.mu.Lock()
	if idx := o.findFolderLocked(id); idx >= 0 {
		o.folders = append(o.folders[:idx], o.folders[idx+1:]...)
	}
	if err := o.store.RemoveFolder(id); err != nil {
		o.logger.Printf("Warning: failed to remove folder %s: %v", id, err)
	}

	var orphanedFolders []entity.Folder
	for i := range o.folders {
		if o.folders[i].ParentID == id {
			o.folders[i].ParentID = ""
			orphanedFolders = append(orphanedFolders, o.folders[i])
		}
	}
	var orphanedNotes []entity.Note
	for i := range o.notes {
		if o.notes[i].FolderID == id {
			o.notes[i].FolderID = ""
			orphanedNotes = append(orphanedNotes, o.notes[i])
		}
	}

	if len(orphanedFolders) > 0 {
		if err := o.store.PutAllFolders(o.folders); err != nil {
			o.logger.Printf("Warning: failed to persist orphaned folders: %v", err)
		}
	}
	if len(orphanedNotes) > 0 {
		if err := o.store.PutAllNotes(o.notes); err != nil {
			o.logger.Printf("Warning: failed to persist orphaned notes: %v", err)
		}
	}

	o.pushFolderDeleteLocked(id)
	for _, f := range orphanedFolders {
		o.pushFolderLocked(f)
	}
	for _, n := range orphanedNotes {
		o.pushNoteLocked(n)
	}
	o.mu.Unlock()
	o.notify()
}

// OpenNote selects a note as the open item.
func (o *Orchestrator) OpenNote(id string) error {
	o.mu.Lock()
	if id != "" && o.findNoteLocked(id) < 0 {
		o.mu.Unlock()
		return fmt.Errorf("note %s not found", id)
	}
	o.openNoteID = id
	o.mu.Unlock()
	o.notify()
	return nil
}

// SaveSettings persists the settings locally and, when active, pushes the
// document to the cloud. Settings sync is explicit, never realtime.
func (o *Orchestrator) SaveSettings(settings entity.Settings) {
	o.mu.Lock()
	o.settings = settings
	if err := o.store.PutSettings(settings); err != nil {
		o.logger.Printf("Warning: failed to persist settings: %v", err)
	}
	if o.cloudActiveLocked() {
		owner := o.identity.ID
		o.remoteWG.Add(1)
		go func() {
			defer o.remoteWG.Done()
			if err := o.cloud.SaveUserSettings(context.Background(), settings, owner); err != nil {
				o.logger.Printf("Warning: cloud settings push failed: %v", err)
			}
		}()
	}
	o.mu.Unlock()
	o.notify()
}

// Export serializes the current notes and folders as a backup document.
func (o *Orchestrator) Export() ([]byte, error) {
	snap := o.Snapshot()
	return backup.Export(snap.Notes, snap.Folders)
}

// Import parses a backup document and adds every note and folder whose id
// is not already present. Existing entities are never overwritten by an
// import. Returns how many of each were added.
func (o *Orchestrator) Import(data []byte) (notesAdded, foldersAdded int, err error) {
	archive, err := backup.Parse(data)
	if err != nil {
		return 0, 0, err
	}

	o.mu.Lock()
	existingFolders := make(map[string]bool, len(o.folders))
	for _, f := range o.folders {
		existingFolders[f.ID] = true
	}
	var addedFolders []entity.Folder
	for _, f := range archive.Folders {
		if existingFolders[f.ID] {
			continue
		}
		o.folders = append(o.folders, f)
		addedFolders = append(addedFolders, f)
	}

	existingNotes := make(map[string]bool, len(o.notes))
	for _, n := range o.notes {
		existingNotes[n.ID] = true
	}
	var addedNotes []entity.Note
	for _, n := range archive.Notes {
		if existingNotes[n.ID] {
			continue
		}
		o.notes = append(o.notes, n)
		addedNotes = append(addedNotes, n)
	}

	if len(addedFolders) > 0 {
		entity.SortFolders(o.folders)
		if err := o.store.PutAllFolders(o.folders); err != nil {
			o.logger.Printf("Warning: failed to persist imported folders: %v", err)
		}
	}
	if len(addedNotes) > 0 {
		entity.SortNotes(o.notes)
		if err := o.store.PutAllNotes(o.notes); err != nil {
			o.logger.Printf("Warning: failed to persist imported notes: %v", err)
		}
	}

	for _, f := range addedFolders {
		o.pushFolderLocked(f)
	}
	for _, n := range addedNotes {
		o.pushNoteLocked(n)
	}
	o.mu.Unlock()
	o.notify()
	return len(addedNotes), len(addedFolders), nil
}
