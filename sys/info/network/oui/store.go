package oui

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/kisun-bit/netgrid/util/tempfile"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const storeLockTimeout = 500 * time.Millisecond

// Store 以 OUI 为键的持久化键值缓存, 文件内容为扁平 JSON 对象.
// 空字符串表示"已查过但无结果".
type Store struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	digest uint64
}

// OpenStore 立即加载缓存文件. 文件不存在视为空; 文件损坏时告警并视为空.
func OpenStore(path string) *Store {
	s := &Store{path: path, data: make(map[string]string)}
	if err := s.load(); err != nil {
		logger.Warnf("OpenStore: %v, continue with empty cache", err)
	}
	return s
}

func (s *Store) load() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(network.ErrCacheCorruption, "read %s: %v", s.path, err)
	}
	if !gjson.ValidBytes(content) {
		return errors.Wrapf(network.ErrCacheCorruption, "%s is not valid json", s.path)
	}
	root := gjson.ParseBytes(content)
	if !root.IsObject() {
		return errors.Wrapf(network.ErrCacheCorruption, "%s is not a json object", s.path)
	}
	data := make(map[string]string)
	root.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
			data[key.String()] = ""
		case gjson.String:
			data[key.String()] = value.String()
		}
		return true
	})
	s.data = data
	s.digest = xxhash.Sum64(content)
	return nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Save 整体写回. 内容未变化且文件仍存在时跳过写入.
// 写入前尽力获取文件锁, 拿不到锁时仍然写入(临时文件+rename 保证读者不会看到半个文件).
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", s.path)
	}
	digest := xxhash.Sum64(content)
	if digest == s.digest {
		if _, err = os.Stat(s.path); err == nil {
			return nil
		}
	}

	lock := flock.New(s.path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), storeLockTimeout)
	defer cancel()
	if locked, e := lock.TryLockContext(ctx, 20*time.Millisecond); e != nil || !locked {
		logger.Debugf("Save: lock %s not acquired(%v), writing anyway", lock.Path(), e)
	} else {
		defer lock.Unlock()
	}

	if err = tempfile.WriteFileAtomic(s.path, content, 0o644); err != nil {
		return err
	}
	s.digest = digest
	return nil
}

// Clear 清空内存数据并删除缓存文件.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]string)
	s.digest = 0
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", s.path)
	}
	return nil
}
