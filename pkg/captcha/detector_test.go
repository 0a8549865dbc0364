package captcha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVerifyURL(t *testing.T) {
	assert.True(t, IsVerifyURL("https://www.douyin.com/verify?from=share"))
	assert.True(t, IsVerifyURL("https://www.xiaohongshu.com/website-login/error?redirectPath=x"))
	assert.True(t, IsVerifyURL("https://v.kuaishou.com/CAPTCHA"))
	assert.False(t, IsVerifyURL("https://www.xiaohongshu.com/explore/64b0c0ffee0000000000abcd"))
}

func TestIsVerifyText(t *testing.T) {
	assert.True(t, IsVerifyText("请完成安全验证"))
	assert.True(t, IsVerifyText("Drag the slider to fit the puzzle"))
	assert.False(t, IsVerifyText("旅行日记 - 小红书"))
}
