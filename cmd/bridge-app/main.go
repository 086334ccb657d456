// Command bridge-app is the consumer side of the demo bridge. The host forks
// it and talks to it over stdio; stderr carries its logs.
//
// The boundary is installed first, then the panel receives its capabilities
// by injection. The panel never sees the endpoint or the transport.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/snowmerak/bridge.go/lib/bridge"
	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/logx"
)

// noticePanel is the demo consumer: it reports every notice it receives and
// answers each one with a command.
type noticePanel struct {
	send  bridge.SendFunc
	scope *bridge.Scope
	log   zerolog.Logger
}

// newNoticePanel mounts the panel: it acquires its subscription through the
// scope so unmounting releases it exactly once.
func newNoticePanel(send bridge.SendFunc, subscribe bridge.SubscribeFunc, log zerolog.Logger) *noticePanel {
	p := &noticePanel{
		send:  send,
		scope: bridge.NewScope(),
		log:   log,
	}

	p.scope.Listen(subscribe, func(payload string) {
		p.log.Info().Str("payload", payload).Msg("notice received")
		if err := p.send(context.Background(), fmt.Sprintf("seen: %s", payload)); err != nil {
			p.log.Error().Err(err).Msg("failed to answer notice")
		}
	})

	return p
}

// unmount releases the panel's subscriptions.
func (p *noticePanel) unmount() {
	p.scope.Close()
}

func main() {
	log := logx.Log.With().Str("component", "bridge-app").Logger()

	set := channel.DefaultSet()
	if manifestPath := os.Getenv("BRIDGE_MANIFEST"); manifestPath != "" {
		loaded, err := channel.LoadManifest(manifestPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", manifestPath).Msg("failed to load channel manifest")
		}
		set = loaded
	}

	endpoint := bridge.AttachStdio(set, bridge.WithLogger(log))

	send, err := endpoint.Sender(channel.Command)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to mint command sender")
	}
	subscribe, err := endpoint.Receiver(channel.Notice)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to mint notice receiver")
	}

	panel := newNoticePanel(send, subscribe, log)
	defer panel.unmount()

	if err := endpoint.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("bridge loop failed")
	}
	log.Info().Msg("bridge closed, exiting")
}
