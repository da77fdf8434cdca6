package oui

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

const (
	WiresharkManufURL = "https://raw.githubusercontent.com/wireshark/wireshark/master/manuf"
	IEEEOUICSVURL     = "https://standards-oui.ieee.org/oui/oui.csv"
)

// DatasetFormat 整表数据集的格式.
type DatasetFormat int

const (
	FormatManuf DatasetFormat = iota // Wireshark manuf, 以制表符分隔.
	FormatIEEECSV
)

// DatasetSource 下载整份参考数据集并建立索引.
// 每个实例只下载一次, 下载失败的结果同样被记住, 不会反复重试.
type DatasetSource struct {
	name   string
	url    string
	format DatasetFormat
	client *http.Client

	mu      sync.Mutex
	fetched bool
	index   map[string]string
	err     error
}

func NewDatasetSource(name, url string, format DatasetFormat, client *http.Client) *DatasetSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &DatasetSource{name: name, url: url, format: format, client: client}
}

func (d *DatasetSource) Name() string {
	return d.name
}

func (d *DatasetSource) Lookup(ctx context.Context, oui string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.fetched {
		d.index, d.err = d.fetch(ctx)
		d.fetched = true
	}
	if d.err != nil {
		return "", d.err
	}
	return d.index[oui], nil
}

func (d *DatasetSource) fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, errors.Wrapf(network.ErrSourceUnavailable, "%s: %v", d.name, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(network.ErrSourceTimeout, "%s: %v", d.name, err)
		}
		return nil, errors.Wrapf(network.ErrSourceUnavailable, "%s: %v", d.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(network.ErrSourceUnavailable, "%s: unexpected status %d", d.name, resp.StatusCode)
	}
	switch d.format {
	case FormatIEEECSV:
		return ParseIEEECSV(resp.Body)
	default:
		return ParseManuf(resp.Body)
	}
}

// ParseManuf 解析 Wireshark manuf. 仅收录 24 位前缀, 优先使用完整厂商名.
//
//	00:00:0C	Cisco	Cisco Systems, Inc
//	00:1B:C5:00:00/36	Convergi	Converging Systems Inc.
func ParseManuf(r io.Reader) (map[string]string, error) {
	index := make(map[string]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		prefix := parts[0]
		if idx := strings.Index(prefix, "/"); idx >= 0 {
			if prefix[idx+1:] != "24" {
				continue
			}
			prefix = prefix[:idx]
		}
		oui, err := network.NormalizeOUI(prefix)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(parts[1])
		if len(parts) >= 3 && strings.TrimSpace(parts[2]) != "" {
			name = strings.TrimSpace(parts[2])
		}
		if _, ok := index[oui]; !ok && name != "" {
			index[oui] = name
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(network.ErrMalformedResponse, "manuf: %v", err)
	}
	return index, nil
}

// ParseIEEECSV 解析 IEEE oui.csv: Registry,Assignment,Organization Name,Organization Address.
func ParseIEEECSV(r io.Reader) (map[string]string, error) {
	index := make(map[string]string)
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(network.ErrMalformedResponse, "oui.csv: %v", err)
		}
		if len(record) < 3 || strings.EqualFold(record[0], "Registry") {
			continue
		}
		oui, e := network.NormalizeOUI(record[1])
		if e != nil {
			continue
		}
		if name := strings.TrimSpace(record[2]); name != "" {
			index[oui] = name
		}
	}
	return index, nil
}
