package oui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/util"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	MacVendorsURL   = "https://api.macvendors.com"
	MacVendorsCoURL = "https://macvendors.co/api"
)

const (
	defaultRateLimitAttempts = 3
	defaultRateLimitDelay    = time.Second
)

// ResponseFormat 查询类服务的响应格式.
type ResponseFormat int

const (
	ResponseText ResponseFormat = iota // 响应体即厂商名.
	ResponseJSON                       // {"result": {"company": "..."}}.
)

var errRateLimited = errors.New("rate limited")

// APISource 按地址逐个查询的在线服务. 服务只接受完整地址, 因此以 OUI 补零后查询.
type APISource struct {
	name    string
	baseURL string
	format  ResponseFormat
	client  *http.Client

	// 收到 HTTP 429 时的重试次数与间隔.
	RateLimitAttempts int
	RateLimitDelay    time.Duration
}

func NewAPISource(name, baseURL string, format ResponseFormat, client *http.Client) *APISource {
	if client == nil {
		client = http.DefaultClient
	}
	return &APISource{
		name:              name,
		baseURL:           strings.TrimRight(baseURL, "/"),
		format:            format,
		client:            client,
		RateLimitAttempts: defaultRateLimitAttempts,
		RateLimitDelay:    defaultRateLimitDelay,
	}
}

func (a *APISource) Name() string {
	return a.name
}

func (a *APISource) Lookup(ctx context.Context, oui string) (vendor string, err error) {
	if len(oui) != 6 {
		return "", errors.Wrapf(network.ErrValidation, "oui %q", oui)
	}
	addr := fmt.Sprintf("%s:%s:%s:00:00:00", oui[0:2], oui[2:4], oui[4:6])
	url := a.baseURL + "/" + addr
	attempts := a.RateLimitAttempts
	if attempts < 1 {
		attempts = 1
	}

	err = util.Retry(ctx, func() error {
		vendor, err = a.query(ctx, url)
		return err
	}, attempts, a.RateLimitDelay, func(e error) bool {
		return errors.Is(e, errRateLimited)
	})
	return vendor, err
}

func (a *APISource) query(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(network.ErrSourceUnavailable, "%s: %v", a.name, err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrapf(network.ErrSourceTimeout, "%s: %v", a.name, err)
		}
		return "", errors.Wrapf(network.ErrSourceUnavailable, "%s: %v", a.name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", nil
	case http.StatusTooManyRequests:
		return "", errors.Wrapf(errRateLimited, "%s", a.name)
	default:
		return "", errors.Wrapf(network.ErrSourceUnavailable, "%s: unexpected status %d", a.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", errors.Wrapf(network.ErrMalformedResponse, "%s: %v", a.name, err)
	}
	return a.parse(body)
}

func (a *APISource) parse(body []byte) (string, error) {
	switch a.format {
	case ResponseJSON:
		if !gjson.ValidBytes(body) {
			return "", errors.Wrapf(network.ErrMalformedResponse, "%s: invalid json", a.name)
		}
		if gjson.GetBytes(body, "result.error").Exists() {
			return "", nil
		}
		return strings.TrimSpace(gjson.GetBytes(body, "result.company").String()), nil
	default:
		text := strings.TrimSpace(string(body))
		// 部分错误以 JSON 形式返回 200.
		if strings.HasPrefix(text, "{") {
			if gjson.Get(text, "errors").Exists() {
				return "", nil
			}
			return "", errors.Wrapf(network.ErrMalformedResponse, "%s: unexpected json body", a.name)
		}
		return text, nil
	}
}

// DefaultRemoteSources 依次为两份整表数据集和两个在线查询服务.
func DefaultRemoteSources(client *http.Client) []Source {
	return []Source{
		NewDatasetSource("wireshark-manuf", WiresharkManufURL, FormatManuf, client),
		NewDatasetSource("ieee-oui-csv", IEEEOUICSVURL, FormatIEEECSV, client),
		NewAPISource("macvendors.com", MacVendorsURL, ResponseText, client),
		NewAPISource("macvendors.co", MacVendorsCoURL, ResponseJSON, client),
	}
}
