package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vkbase/engine/assets/loaders"
	"github.com/spaghettifunk/vkbase/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeImage
	AssetTypeTexture
	AssetTypeModel
	AssetTypeScene
	AssetTypeFont
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeShader:
		return "shader"
	case AssetTypeImage:
		return "image"
	case AssetTypeTexture:
		return "texture"
	case AssetTypeModel:
		return "model"
	case AssetTypeScene:
		return "scene"
	case AssetTypeFont:
		return "font"
	}
	return "none"
}

// AssetInfo describes one indexed file. Name is the slash separated path
// relative to the assets directory.
type AssetInfo struct {
	Name    string
	Path    string
	Type    AssetType
	ModTime time.Time
}

// AssetManager keeps an index of the assets directory current while the
// program runs. Loading is explicit and happens through the Load methods.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	mutex sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	fsnotify  *fsnotify.Watcher
}

func NewAssetManager(root string) (*AssetManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if s, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("assets directory: %w", err)
	} else if !s.IsDir() {
		return nil, fmt.Errorf("assets directory %s is not a directory", abs)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	am := &AssetManager{
		root:     abs,
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	if err := am.watchRecursive(abs); err != nil {
		fsWatch.Close()
		return nil, err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("Asset manager indexed %d files under %s.", am.Count(), abs)
	return am, nil
}

// Close stops watching. It is safe to call more than once.
func (am *AssetManager) Close() error {
	am.closeOnce.Do(func() {
		close(am.done)
		am.wg.Wait()
	})
	return nil
}

func (am *AssetManager) Root() string { return am.root }

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup returns the index entry for name.
func (am *AssetManager) Lookup(name string) (AssetInfo, error) {
	am.mutex.RLock()
	asset, exists := am.assets[filepath.ToSlash(name)]
	am.mutex.RUnlock()
	if !exists {
		return AssetInfo{}, fmt.Errorf("%s: %w", name, core.ErrAssetNotFound)
	}
	return asset, nil
}

// List returns the assets of type t sorted by name.
func (am *AssetManager) List(t AssetType) []AssetInfo {
	am.mutex.RLock()
	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == t {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (am *AssetManager) lookupTyped(name string, types ...AssetType) (AssetInfo, error) {
	asset, err := am.Lookup(name)
	if err != nil {
		return asset, err
	}
	for _, t := range types {
		if asset.Type == t {
			return asset, nil
		}
	}
	return asset, fmt.Errorf("%s is a %s asset: %w", name, asset.Type, core.ErrInvalidAsset)
}

func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	asset, err := am.lookupTyped(name, AssetTypeShader)
	if err != nil {
		return nil, err
	}
	return loaders.LoadSPIRV(asset.Path)
}

func (am *AssetManager) LoadImage(name string, flipY bool) (*loaders.ImageData, error) {
	asset, err := am.lookupTyped(name, AssetTypeImage)
	if err != nil {
		return nil, err
	}
	return loaders.LoadImage(asset.Path, flipY)
}

func (am *AssetManager) LoadKTX(name string) (*loaders.KTXTexture, error) {
	asset, err := am.lookupTyped(name, AssetTypeTexture)
	if err != nil {
		return nil, err
	}
	return loaders.LoadKTX(asset.Path)
}

func (am *AssetManager) LoadOBJ(name string) (*loaders.MeshData, error) {
	asset, err := am.lookupTyped(name, AssetTypeModel)
	if err != nil {
		return nil, err
	}
	return loaders.LoadOBJ(asset.Path)
}

func (am *AssetManager) LoadGLTF(name string) (*loaders.SceneData, error) {
	asset, err := am.lookupTyped(name, AssetTypeScene)
	if err != nil {
		return nil, err
	}
	return loaders.LoadGLTF(asset.Path)
}

func (am *AssetManager) LoadFont(name string) (*loaders.FontData, error) {
	asset, err := am.lookupTyped(name, AssetTypeFont)
	if err != nil {
		return nil, err
	}
	return loaders.LoadBitmapFont(asset.Path)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		s, err := os.Stat(e.Name)
		if err != nil {
			return
		}
		if s.IsDir() {
			if e.Op&fsnotify.Create != 0 {
				if err := am.watchRecursive(e.Name); err != nil {
					core.LogWarn("asset watcher: %s", err)
				}
			}
			return
		}
		am.handleFileEvent(e.Name, s)
	}
	// A removed path can no longer be stated, so drop it both as a file and
	// as a directory prefix.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
	}
}

// watchRecursive adds every directory under path to the watcher and indexes
// the files found on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		am.handleFileEvent(walkPath, info)
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string, info fs.FileInfo) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return
	}
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	name := filepath.ToSlash(rel)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[name] = AssetInfo{
		Name:    name,
		Path:    path,
		Type:    assetType,
		ModTime: info.ModTime(),
	}
}

func (am *AssetManager) removeAsset(path string) {
	prefix := path + string(filepath.Separator)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	for name, a := range am.assets {
		if a.Path == path || strings.HasPrefix(a.Path, prefix) {
			delete(am.assets, name)
		}
	}
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeImage
	case ".ktx":
		return AssetTypeTexture
	case ".obj":
		return AssetTypeModel
	case ".gltf", ".glb":
		return AssetTypeScene
	case ".fnt":
		return AssetTypeFont
	}
	return AssetTypeNone
}
