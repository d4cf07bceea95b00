package executor

import (
	"bytes"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

// TestLocal tests the execution of a process on the local machine.
func TestLocal(t *testing.T) {
	Convey("While using Local Executor", t, func() {
		l := NewLocal()

		Convey("When a blocking sleep command is executed", func() {
			handle, err := l.Execute("sleep inf")
			So(err, ShouldBeNil)

			Reset(func() {
				handle.Stop()
				handle.Clean()
				handle.EraseOutput()
			})

			Convey("Task should be still running", func() {
				So(handle.Status(), ShouldEqual, RUNNING)

				_, err := handle.ExitCode()
				So(err, ShouldNotBeNil)
			})

			Convey("When we wait for task termination with a short timeout", func() {
				terminated := handle.Wait(10 * time.Millisecond)

				Convey("The timeout should exceed and the task stay running", func() {
					So(terminated, ShouldBeFalse)
					So(handle.Status(), ShouldEqual, RUNNING)
				})
			})

			Convey("When we stop the task", func() {
				err := handle.Stop()

				Convey("The task should be terminated with the SIGTERM exit code", func() {
					So(err, ShouldBeNil)
					So(handle.Status(), ShouldEqual, TERMINATED)

					exitCode, err := handle.ExitCode()
					So(err, ShouldBeNil)
					So(exitCode, ShouldEqual, -15)
				})
			})
		})

		Convey("When command `echo output` is executed", func() {
			handle, err := l.Execute("echo output")
			So(err, ShouldBeNil)

			Reset(func() {
				handle.Stop()
				handle.Clean()
				handle.EraseOutput()
			})

			Convey("When we wait for the task to terminate", func() {
				terminated := handle.Wait(5 * time.Second)
				So(terminated, ShouldBeTrue)

				Convey("The task should be terminated with exit code 0", func() {
					So(handle.Status(), ShouldEqual, TERMINATED)

					exitCode, err := handle.ExitCode()
					So(err, ShouldBeNil)
					So(exitCode, ShouldEqual, 0)
				})

				Convey("And the stdout should contain the echoed text", func() {
					stdout, err := ReadStdout(handle)
					So(err, ShouldBeNil)
					So(stdout, ShouldStartWith, "output")
				})
			})
		})

		Convey("When a failing command's output is logged for diagnosis", func() {
			handle, err := l.Execute("echo to-stdout; echo to-stderr >&2; exit 1")
			So(err, ShouldBeNil)

			Reset(func() {
				handle.Clean()
				handle.EraseOutput()
			})

			handle.Wait(0)

			var buffer bytes.Buffer
			previousOutput := log.StandardLogger().Out
			previousLevel := log.GetLevel()
			log.SetOutput(&buffer)
			log.SetLevel(log.DebugLevel)
			defer func() {
				log.SetOutput(previousOutput)
				log.SetLevel(previousLevel)
			}()

			LogOutput(handle)

			Convey("Both streams end up in the log", func() {
				So(buffer.String(), ShouldContainSubstring, "to-stdout")
				So(buffer.String(), ShouldContainSubstring, "to-stderr")
			})
		})

		Convey("When command with non-zero exit code is executed", func() {
			handle, err := l.Execute("exit 3")
			So(err, ShouldBeNil)

			Reset(func() {
				handle.Clean()
				handle.EraseOutput()
			})

			handle.Wait(0)

			Convey("The exit code should be 3", func() {
				exitCode, err := handle.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 3)
			})
		})
	})
}
