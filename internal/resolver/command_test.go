package resolver

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type call struct {
	Name string
	Args []string
}

type fakeRunner struct {
	out   []byte
	err   error
	calls []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{Name: name, Args: args})
	return f.out, f.err
}

const ipconfigOutput = `
Windows IP Configuration

   Host Name . . . . . . . . . . . . : DESKTOP
   Primary Dns Suffix  . . . . . . . :

Wireless LAN adapter Wi-Fi:

   Connection-specific DNS Suffix  . : lan
   IPv4 Address. . . . . . . . . . . : 192.168.1.23(Preferred)
   Default Gateway . . . . . . . . . : 192.168.1.1
   DNS Servers . . . . . . . . . . . : 2606:4700:4700::1111
                                       1.1.1.1
   NetBIOS over Tcpip. . . . . . . . : Enabled
`

func TestCommandReader(t *testing.T) {
	f := &fakeRunner{out: []byte(ipconfigOutput)}
	r := &CommandReader{Runner: f}
	if got := r.Read(context.Background()).Address; got != "2606:4700:4700::1111" {
		t.Fatalf("got %q", got)
	}
	want := []call{{Name: "ipconfig", Args: []string{"/all"}}}
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Fatal(diff)
	}
}

func TestCommandReader_Failures(t *testing.T) {
	cases := map[string]*fakeRunner{
		"missing command": {err: exec.ErrNotFound},
		"no dns line":     {out: []byte("Windows IP Configuration\n")},
		"garbage value":   {out: []byte("   DNS Servers . . . : none\n")},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			r := &CommandReader{Runner: f}
			if got := r.Read(context.Background()); got.Known() {
				t.Fatalf("want unknown, got %+v", got)
			}
		})
	}
}

func TestCommandApplier(t *testing.T) {
	f := &fakeRunner{}
	a := &CommandApplier{Runner: f, Interface: "Ethernet 2"}
	if err := a.Apply(context.Background(), "9.9.9.9"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []call{{Name: "netsh", Args: []string{
		"interface", "ip", "set", "dns", "name=Ethernet 2", "static", "9.9.9.9",
	}}}
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Fatal(diff)
	}
}

func TestCommandApplier_EmptyAddress(t *testing.T) {
	f := &fakeRunner{}
	a := &CommandApplier{Runner: f, Interface: DefaultInterface}
	if err := a.Apply(context.Background(), ""); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("runner called: %+v", f.calls)
	}
}

func TestCommandApplier_Errors(t *testing.T) {
	cases := []struct {
		name string
		f    *fakeRunner
		want ErrorKind
	}{
		{"non-zero exit", &fakeRunner{out: []byte("The filename is incorrect."), err: errors.New("exit status 1")}, KindProcessFailure},
		{"not elevated", &fakeRunner{out: []byte("The requested operation requires elevation (Run as administrator)."), err: errors.New("exit status 1")}, KindPermissionDenied},
		{"cannot launch", &fakeRunner{err: &exec.Error{Name: "netsh", Err: exec.ErrNotFound}}, KindProcessFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := &CommandApplier{Runner: c.f, Interface: DefaultInterface}
			err := a.Apply(context.Background(), "9.9.9.9")
			if got := KindOf(err); got != c.want {
				t.Fatalf("kind %v want %v (%v)", got, c.want, err)
			}
		})
	}
}
