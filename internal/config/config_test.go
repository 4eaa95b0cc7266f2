// ABOUTME: Tests for configuration setup
// ABOUTME: Defaults, env overrides and TOML file loading on an in-memory filesystem
package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/where"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestSetup(t *testing.T) {
	filesystem.SetMemMapFs()
	defer filesystem.SetOsFs()
	t.Setenv(where.EnvConfigPath, "/cfg")

	Convey("Config Setup", t, func() {
		viper.Reset()

		Convey("Should initialize without a config file", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should populate defaults", func() {
			So(Setup(), ShouldBeNil)
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetDuration(key.PlayerSeekStep), ShouldEqual, 5*time.Second)
			So(viper.GetInt(key.AudioSampleRate), ShouldEqual, 48000)
			So(viper.GetBool(key.RemoteEnabled), ShouldBeFalse)
		})

		Convey("Should read termvid.toml", func() {
			toml := "[player]\nseek_step = \"10s\"\n\n[audio]\nchannels = 1\n"
			So(filesystem.API().WriteFile(filepath.Join("/cfg", "termvid.toml"), []byte(toml), 0o644), ShouldBeNil)

			So(Setup(), ShouldBeNil)
			So(viper.GetDuration(key.PlayerSeekStep), ShouldEqual, 10*time.Second)
			So(viper.GetInt(key.AudioChannels), ShouldEqual, 1)

			So(filesystem.API().Remove(filepath.Join("/cfg", "termvid.toml")), ShouldBeNil)
		})

		Convey("Should honor environment overrides", func() {
			t.Setenv("TERMVID_AUDIO_ENCODING", "f32")
			So(Setup(), ShouldBeNil)
			So(viper.GetString(key.AudioEncoding), ShouldEqual, "f32")
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("player.seek_step"), ShouldEqual, "player_seek_step")
			So(Default[key.PlayerSeekStep].Env(), ShouldEqual, "TERMVID_PLAYER_SEEK_STEP")
		})
	})
}
