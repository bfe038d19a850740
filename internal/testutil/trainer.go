package testutil

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"
)

// TrainerEnv switches the test binary into fake trainer mode.
const TrainerEnv = "TRAINMESH_FAKE_TRAINER"

// TrainerCommand returns the command prefix that re-executes the current
// test binary as a fake trainer. The calling package must define
//
//	func TestHelperProcess(t *testing.T) { testutil.RunFakeTrainer() }
func TrainerCommand() []string {
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--"}
}

// EnableTrainer sets TrainerEnv for the duration of the test so spawned
// children (which inherit the environment) act as fake trainers.
func EnableTrainer(t testing.TB) {
	t.Helper()
	t.Setenv(TrainerEnv, "1")
}

// RunFakeTrainer exits the process with the fake trainer's status when
// TrainerEnv is set; otherwise it returns immediately.
//
// Understood flags besides the trainer contract (-env, -seed, -logdir):
//
//	-exit N          exit status (default 0)
//	-fail_seed N     exit 3 when -seed equals N
//	-sleep D         sleep for duration D before exiting
//	-artifact NAME   create NAME inside -logdir (repeatable)
//	-ignore_term     ignore SIGTERM so only a kill stops the process
//	-dir PATH        report-tool mode: print the analyzed directory
func RunFakeTrainer() {
	if os.Getenv(TrainerEnv) != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	os.Exit(fakeTrainer(args))
}

func fakeTrainer(args []string) int {
	var (
		env, logdir, dir string
		seed             = -1
		failSeed         = -1
		exit             int
		sleep            time.Duration
		artifacts        []string
	)
	next := func(i *int) string {
		*i++
		if *i < len(args) {
			return args[*i]
		}
		return ""
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-env":
			env = next(&i)
		case "-seed":
			seed, _ = strconv.Atoi(next(&i))
		case "-logdir":
			logdir = next(&i)
		case "-exit":
			exit, _ = strconv.Atoi(next(&i))
		case "-fail_seed":
			failSeed, _ = strconv.Atoi(next(&i))
		case "-sleep":
			sleep, _ = time.ParseDuration(next(&i))
		case "-artifact":
			artifacts = append(artifacts, next(&i))
		case "-ignore_term":
			signal.Ignore(syscall.SIGTERM)
		case "-dir":
			dir = next(&i)
		}
	}

	if dir != "" {
		fmt.Printf("analyzed %s\n", dir)
		return exit
	}

	fmt.Printf("training %s seed %d\n", env, seed)
	fmt.Fprintln(os.Stderr, "stderr line")
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(logdir, a), []byte("model"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "artifact: %v\n", err)
			return 1
		}
	}
	if sleep > 0 {
		time.Sleep(sleep)
	}
	if failSeed >= 0 && seed == failSeed {
		return 3
	}
	return exit
}
