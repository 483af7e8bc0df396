package main

import "github.com/goplus/sdkbuild/cmd/sdkbuild/internal"

func main() {
	internal.Execute()
}
