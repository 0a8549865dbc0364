package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://v.douyin.com/iRNBho5/", Douyin},
		{"https://www.iesdouyin.com/share/video/7301/", Douyin},
		{"https://v.kuaishou.com/abc", Kuaishou},
		{"https://www.gifshow.com/fw/photo/3x", Kuaishou},
		{"https://v.m.chenzhongtech.com/fw/photo/3x", Kuaishou},
		{"http://xhslink.com/a/Zx9", Xiaohongshu},
		{"https://www.xiaohongshu.com/explore/64f0c0a1000000001f03b2a1", Xiaohongshu},
		{"https://b23.tv/BV1", Bilibili},
		{"https://m.weibo.cn/status/1", Weibo},
		{"https://vm.tiktok.com/ZM1/", TikTok},
		{"https://www.youtube.com/watch?v=x", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Detect(tt.url), tt.url)
	}
}

func TestDetectIsStableForEveryRegisteredDomain(t *testing.T) {
	for _, p := range Platforms() {
		for _, d := range Domains(p) {
			assert.Equal(t, p, Detect("https://"+d+"/some/path?x=1"), d)
		}
	}
}

func TestDomainSetsDoNotOverlap(t *testing.T) {
	owner := map[string]Platform{}
	for _, p := range Platforms() {
		for _, d := range Domains(p) {
			for other, op := range owner {
				if op == p {
					continue
				}
				assert.False(t, strings.Contains(d, other) || strings.Contains(other, d),
					"%s (%s) overlaps %s (%s)", d, p, other, op)
			}
			owner[d] = p
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"7.43 复制打开抖音，看看【作品】 https://v.douyin.com/iRNBho5/ aBc:/ 01/09", "https://v.douyin.com/iRNBho5/"},
		{"  https://xhslink.com/a/Zx9  ", "https://xhslink.com/a/Zx9"},
		{`see "http://b23.tv/x"`, "http://b23.tv/x"},
		{"first http://a.com/1 second https://b.com/2", "http://a.com/1"},
		{"  no link here  ", "no link here"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.raw), tt.raw)
	}
}

func TestResultValid(t *testing.T) {
	assert.True(t, (&Result{Type: Video, VideoURL: "v"}).Valid())
	assert.True(t, (&Result{Type: Images, Images: []string{"a"}}).Valid())
	assert.False(t, (&Result{Type: Video, VideoURL: "v", Images: []string{"a"}}).Valid())
	assert.False(t, (&Result{Type: Images, Images: []string{"a", ""}}).Valid())
	assert.False(t, (&Result{Type: Images}).Valid())
	assert.False(t, (*Result)(nil).HasMedia())
}

func TestResolutionIDIsStable(t *testing.T) {
	a := ResolutionID("https://v.douyin.com/abc/")
	assert.Equal(t, a, ResolutionID("https://v.douyin.com/abc/"))
	assert.NotEqual(t, a, ResolutionID("https://v.douyin.com/abd/"))
	assert.Len(t, a, 36)
}
