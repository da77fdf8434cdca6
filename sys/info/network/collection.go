package network

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
)

// Collection 按名称索引、保持发现顺序的接口集合.
// 重名记录会被拒绝(ErrDuplicate); 构造时记录被深拷贝, 读取时返回副本,
// 因此一个 Collection 构造完成后不会再被修改, 刷新总是生成新的集合.
type Collection struct {
	items *orderedmap.OrderedMap[string, *Interface]
}

// NewCollection 校验并拷贝每条记录.
func NewCollection(ifaces ...*Interface) (*Collection, error) {
	c := &Collection{items: orderedmap.NewOrderedMap[string, *Interface]()}
	for _, i := range ifaces {
		if i == nil {
			continue
		}
		cp := i.Clone()
		if err := cp.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.items.Get(cp.Name); ok {
			return nil, errors.Wrapf(ErrDuplicate, "interface %s", cp.Name)
		}
		c.items.Set(cp.Name, cp)
	}
	return c, nil
}

// 内部使用, 记录已校验且不会与调用方共享.
func newCollectionUnchecked(ifaces []*Interface) *Collection {
	c := &Collection{items: orderedmap.NewOrderedMap[string, *Interface]()}
	for _, i := range ifaces {
		c.items.Set(i.Name, i)
	}
	return c
}

func (c *Collection) Len() int {
	if c == nil || c.items == nil {
		return 0
	}
	return c.items.Len()
}

func (c *Collection) Get(name string) (Interface, bool) {
	if c.Len() == 0 {
		return Interface{}, false
	}
	i, ok := c.items.Get(name)
	if !ok {
		return Interface{}, false
	}
	return *i.Clone(), true
}

func (c *Collection) Names() []string {
	names := make([]string, 0, c.Len())
	if c.Len() == 0 {
		return names
	}
	for el := c.items.Front(); el != nil; el = el.Next() {
		names = append(names, el.Key)
	}
	return names
}

// Interfaces 按集合顺序返回所有记录的副本.
func (c *Collection) Interfaces() []Interface {
	out := make([]Interface, 0, c.Len())
	for _, i := range c.records() {
		out = append(out, *i.Clone())
	}
	return out
}

func (c *Collection) records() []*Interface {
	out := make([]*Interface, 0, c.Len())
	if c.Len() == 0 {
		return out
	}
	for el := c.items.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Filter 保持相对顺序.
func (c *Collection) Filter(keep func(Interface) bool) *Collection {
	selected := make([]*Interface, 0)
	for _, i := range c.records() {
		if keep(*i) {
			selected = append(selected, i.Clone())
		}
	}
	return newCollectionUnchecked(selected)
}

func (c *Collection) FilterByState(state LinkState) *Collection {
	return c.Filter(func(i Interface) bool { return i.LinkState == state })
}

func (c *Collection) FilterByType(t InterfaceType) *Collection {
	return c.Filter(func(i Interface) bool { return i.Type == t })
}

func (c *Collection) FilterUp() *Collection {
	return c.FilterByState(LinkStateUp)
}

func (c *Collection) FilterDown() *Collection {
	return c.FilterByState(LinkStateDown)
}

func (c *Collection) FilterPhysical() *Collection {
	return c.FilterByType(TypePhysical)
}

// SortByName 稳定排序, 名称升序(reverse 为 true 时降序).
func (c *Collection) SortByName(reverse bool) *Collection {
	return c.sorted(func(a, b *Interface) bool {
		if reverse {
			return a.Name > b.Name
		}
		return a.Name < b.Name
	})
}

// SortByState 按 UP、DOWN、UNKNOWN 排序, 同状态按名称升序.
func (c *Collection) SortByState(reverse bool) *Collection {
	return c.sorted(func(a, b *Interface) bool {
		pa, pb := a.LinkState.priority(), b.LinkState.priority()
		if pa != pb {
			if reverse {
				return pa > pb
			}
			return pa < pb
		}
		return a.Name < b.Name
	})
}

func (c *Collection) sorted(less func(a, b *Interface) bool) *Collection {
	recs := c.records()
	for idx := range recs {
		recs[idx] = recs[idx].Clone()
	}
	sort.SliceStable(recs, func(x, y int) bool { return less(recs[x], recs[y]) })
	return newCollectionUnchecked(recs)
}

type Summary struct {
	Count     int `json:"count"`
	UpCount   int `json:"up_count"`
	DownCount int `json:"down_count"`
}

func (c *Collection) Summary() Summary {
	s := Summary{Count: c.Len()}
	for _, i := range c.records() {
		switch i.LinkState {
		case LinkStateUp:
			s.UpCount++
		case LinkStateDown:
			s.DownCount++
		}
	}
	return s
}

// JSON 输出 {"interfaces": [...], "count": n, "up_count": n, "down_count": n}.
func (c *Collection) JSON() (string, error) {
	var (
		doc = `{"interfaces":[]}`
		err error
	)
	for _, i := range c.records() {
		doc, err = sjson.Set(doc, "interfaces.-1", i)
		if err != nil {
			return "", errors.Errorf("failed to set interface %s to json, %v", i.Name, err)
		}
	}
	s := c.Summary()
	for _, kv := range []struct {
		key   string
		value int
	}{{"count", s.Count}, {"up_count", s.UpCount}, {"down_count", s.DownCount}} {
		doc, err = sjson.Set(doc, kv.key, kv.value)
		if err != nil {
			return "", errors.Errorf("failed to set %s to json, %v", kv.key, err)
		}
	}
	return doc, nil
}

func (c *Collection) MarshalJSON() ([]byte, error) {
	doc, err := c.JSON()
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}
