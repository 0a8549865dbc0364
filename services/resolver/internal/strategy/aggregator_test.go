package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// providersAt points the default providers at one test server, one path each.
func providersAt(base string) []Provider {
	ps := DefaultProviders()
	for i := range ps {
		ps[i].Endpoint = base + "/" + ps[i].Name
	}
	return ps
}

func aggregatorServer(t *testing.T, bodies map[string]string, statuses map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		if code, ok := statuses[name]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := bodies[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAggregatorImageObjects(t *testing.T) {
	srv := aggregatorServer(t, map[string]string{
		"pearktrue": `{"code":200,"data":{"title":"gallery","images":[{"url":"a"},{"url":""},{"url":"b"}]}}`,
	}, nil)

	a := NewAggregator(client.New(5*time.Second), providersAt(srv.URL), zerolog.Nop())
	res, err := a.Parse(context.Background(), "https://v.douyin.com/x/")
	require.NoError(t, err)
	assert.Equal(t, media.Images, res.Type)
	assert.Equal(t, []string{"a", "b"}, res.Images)
	assert.Equal(t, "a", res.Cover)
	assert.Equal(t, media.Douyin, res.Platform)
	assert.Empty(t, res.VideoURL)
}

func TestAggregatorFallsThroughProviders(t *testing.T) {
	srv := aggregatorServer(t, map[string]string{
		"generic_v1": `{"code":"200","data":{"code":1}}`,
		"douyin_wtf": `{"status":"success","data":{"desc":"dance","video":{"bit_rate":[
			{"bit_rate":240,"play_addr":{"url_list":["https://v/playwm/240"]}},
			{"bit_rate":720,"play_addr":{"url_list":["https://v/playwm/720"]}},
			{"bit_rate":480,"play_addr":{"url_list":["https://v/playwm/480"]}}]}}}`,
	}, map[string]int{"pearktrue": http.StatusBadGateway})

	a := NewAggregator(client.New(5*time.Second), providersAt(srv.URL), zerolog.Nop())
	res, err := a.Parse(context.Background(), "https://v.kuaishou.com/x")
	require.NoError(t, err)
	assert.Equal(t, media.Video, res.Type)
	assert.Equal(t, "https://v/play/720", res.VideoURL)
	assert.Equal(t, "dance", res.Title)
	assert.Equal(t, media.Kuaishou, res.Platform)
}

func TestAggregatorExhausted(t *testing.T) {
	srv := aggregatorServer(t, map[string]string{
		"pearktrue":  `{"code":200,"data":{"title":"only a title"}}`,
		"generic_v1": `<html>maintenance</html>`,
		"douyin_wtf": `{"code":500}`,
	}, nil)

	a := NewAggregator(client.New(5*time.Second), providersAt(srv.URL), zerolog.Nop())
	_, err := a.Parse(context.Background(), "https://xhslink.com/a/b")
	require.Error(t, err)
	assert.Equal(t, "all aggregator endpoints failed: generic_v1: response is not valid json", err.Error())
}

func TestAggregatorAcceptRules(t *testing.T) {
	cases := []struct {
		accept func(gjson.Result) bool
		body   string
		want   bool
	}{
		{acceptPearktrue, `{"code":200}`, true},
		{acceptPearktrue, `{"code":"200"}`, true},
		{acceptPearktrue, `{"code":0}`, true},
		{acceptPearktrue, `{"code":404}`, false},
		{acceptPearktrue, `{}`, false},
		{acceptPearktrue, `{"code":false}`, true},
		{acceptPearktrue, `{"code":true}`, false},
		{acceptGenericV1, `{"status":101}`, true},
		{acceptGenericV1, `{"code":"101"}`, true},
		{acceptGenericV1, `{"status":true}`, true},
		{acceptGenericV1, `{}`, true},
		{acceptGenericV1, `{"status":500,"success":true}`, true},
		{acceptGenericV1, `{"status":500}`, false},
		{acceptGenericV1, `{"status":false}`, true},
		{acceptGenericV1, `{"status":1}`, true},
		{acceptGenericV1, `{"status":2}`, false},
		{acceptGenericV1, `{"status":null}`, false},
		{acceptGenericV1, `{"status":"true"}`, false},
		{acceptDouyinWTF, `{"code":200}`, true},
		{acceptDouyinWTF, `{"status":"success"}`, true},
		{acceptDouyinWTF, `{"code":"200"}`, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.accept(gjson.Parse(c.body)), c.body)
	}
}

func TestAggregatorCanHandleAnyLink(t *testing.T) {
	a := NewAggregator(client.New(time.Second), nil, zerolog.Nop())
	assert.True(t, a.CanHandle("https://b23.tv/x"))
	assert.False(t, a.CanHandle("b23.tv/x"))
	assert.Len(t, a.providers, 3)
}
