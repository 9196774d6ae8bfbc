// libtimepin is built with -buildmode=c-shared and loaded into the host
// process. Loading it starts the attach sequence.
package main

import "C"

import (
	"unsafe"

	"github.com/tliron/commonlog"

	"github.com/pboyd/timepin"
	"github.com/pboyd/timepin/entry"

	_ "github.com/tliron/commonlog/simple"
)

func init() {
	cfg, err := timepin.ConfigFromEnv()
	if err != nil {
		cfg = timepin.DefaultConfig()
	}
	cfg.Log.Apply()
	if err != nil {
		commonlog.GetLogger("timepin").Error("config ignored", "error", err)
	}

	pin := timepin.Default()
	pin.SetOverride(cfg.Override)
	pin.Start(cfg, timepin.NativePlatform(entry.Replacement()))
}

//export Java_com_example_testxp_Main_setTimeScale
func Java_com_example_testxp_Main_setTimeScale(env, class unsafe.Pointer, scale C.float) {
	timepin.Default().SetOverride(float64(scale))
}

//export Java_com_example_testxp_Main_updateTimeScaleImmediately
func Java_com_example_testxp_Main_updateTimeScaleImmediately(env, class unsafe.Pointer) {
	timepin.Default().ApplyNow()
}

func main() {}
