package proxy

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/logger"
	"hermes/pkg/models"
)

const sampleList = `
# datacenter
10.0.0.1:8080
10.0.0.2:3128:alice:s3cret

not-a-proxy
10.0.0.3:http
10.0.0.4:80:onlyuser
  10.0.0.5:9000
`

func TestLoad(t *testing.T) {
	log := logger.NewTestLogger()
	pool := NewPool(SchemeHTTP, log)

	n, err := pool.Load(strings.NewReader(sampleList))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, pool.Len())

	all := pool.All()
	assert.Equal(t, models.Proxy{Host: "10.0.0.1", Port: 8080}, all[0])
	assert.Equal(t, models.Proxy{Host: "10.0.0.2", Port: 3128, Username: "alice", Password: "s3cret"}, all[1])
	assert.Equal(t, models.Proxy{Host: "10.0.0.5", Port: 9000}, all[2])

	// three malformed lines are reported, not fatal
	assert.Len(t, log.GetMessagesByLevel("WARN"), 3)

	// loading advances once, so the second entry is active first
	cur, ok := pool.Current()
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", cur.Host)
	assert.Equal(t, 1, pool.Index())
}

func TestLoadReplacesPool(t *testing.T) {
	pool := NewPool(SchemeHTTP, logger.NewNopLogger())
	_, err := pool.Load(strings.NewReader("1.1.1.1:80\n2.2.2.2:80\n"))
	require.NoError(t, err)

	_, err = pool.Load(strings.NewReader("3.3.3.3:80\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, pool.Len())
	cur, _ := pool.Current()
	assert.Equal(t, "3.3.3.3", cur.Host)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	require.NoError(t, os.WriteFile(path, []byte("5.5.5.5:1080:u:p\n"), 0644))

	pool := NewPool(SchemeSOCKS5, logger.NewNopLogger())
	n, err := pool.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = pool.LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestAdvanceWrapsAround(t *testing.T) {
	pool := NewPool(SchemeHTTP, logger.NewNopLogger())
	_, err := pool.Load(strings.NewReader("a:1\nb:2\nc:3\n"))
	require.NoError(t, err)

	var hosts []string
	for i := 0; i < 4; i++ {
		px, ok := pool.Advance()
		require.True(t, ok)
		hosts = append(hosts, px.Host)
	}
	assert.Equal(t, []string{"c", "a", "b", "c"}, hosts)
}

func TestEmptyPool(t *testing.T) {
	pool := NewPool("", logger.NewNopLogger())

	_, ok := pool.Advance()
	assert.False(t, ok)
	_, ok = pool.Current()
	assert.False(t, ok)
	assert.Equal(t, SchemeHTTP, pool.Scheme())

	u, err := pool.proxyURL(&http.Request{})
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    models.Proxy
		wantErr bool
	}{
		{"host:80", models.Proxy{Host: "host", Port: 80}, false},
		{"host:80:u:p", models.Proxy{Host: "host", Port: 80, Username: "u", Password: "p"}, false},
		{"host", models.Proxy{}, true},
		{"host:80:u", models.Proxy{}, true},
		{"host:eighty", models.Proxy{}, true},
		{"a:1:b:c:d", models.Proxy{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransportFollowsActiveProxy(t *testing.T) {
	pool := NewPool(SchemeHTTP, logger.NewNopLogger())
	_, err := pool.Load(strings.NewReader("1.1.1.1:80\n2.2.2.2:81:user:pw\n"))
	require.NoError(t, err)

	tr := pool.Transport(5 * time.Second)
	require.NotNil(t, tr.Proxy)

	u, err := tr.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, "http://user:pw@2.2.2.2:81", u.String())

	pool.Advance()
	u, err = tr.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, "http://1.1.1.1:80", u.String())
}

func TestSOCKS5TransportUsesDialer(t *testing.T) {
	pool := NewPool(SchemeSOCKS5, logger.NewNopLogger())
	tr := pool.Transport(time.Second)

	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}
