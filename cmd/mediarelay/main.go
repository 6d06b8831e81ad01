// Package main 启动应用程序
package main

import "github.com/yeisme/mediarelay/pkg/cmd"

//	@title			MediaRelay API
//	@version		1.0.0
//	@description	MediaRelay 是一个限时的字节区间媒体流中继服务，将令牌还原为上游地址并按 Range 转发，支持浏览器拖动播放.

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

//	@BasePath	/

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
