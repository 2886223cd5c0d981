// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubsubMessage is the JSON payload relayed to the external topic: a
// flat project/display/status shape suited to simple downstream
// filtering and alerting.
type PubsubMessage struct {
	ProjectID  string `json:"projectID"`
	DisplayID  string `json:"displayID"`
	PlayerName string `json:"playerName"`
	Topic      string `json:"topic"`
	EventType  Type   `json:"eventType"`
	LayoutID   string `json:"layoutID,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PubsubSink relays a subset of Bus events to a Google Cloud Pub/Sub
// topic, for fleets that want a central aggregation point in addition to
// the CMS's own status endpoint. It is optional: Core works without one.
type PubsubSink struct {
	projectID  string
	topicID    string
	displayID  string
	playerName string
	log        *zap.SugaredLogger

	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubsubSink dials projectID and opens topicID. Callers should Close
// it on shutdown.
func NewPubsubSink(ctx context.Context, projectID, topicID, displayID, playerName string, log *zap.SugaredLogger) (*PubsubSink, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub: NewClient: %w", err)
	}
	return &PubsubSink{
		projectID:  projectID,
		topicID:    topicID,
		displayID:  displayID,
		playerName: playerName,
		log:        log,
		client:     client,
		topic:      client.Topic(topicID),
	}, nil
}

// Close releases the underlying client.
func (s *PubsubSink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}

// relayed lists which event types are worth shipping off-box; most
// events (LayoutAlreadyPlaying, every tick of the collection loop) are
// too chatty and stay local.
var relayed = map[Type]bool{
	TypeCollectionError:    true,
	TypeOfflineMode:        true,
	TypeLayoutBlacklisted:  true,
	TypePushMisconfigured:  true,
	TypeStatusNotifyFailed: true,
}

// Subscriber returns a Bus Subscriber that relays interesting events.
// Publish errors are logged, never propagated: a Pub/Sub outage must
// not affect local playback.
func (s *PubsubSink) Subscriber() Subscriber {
	return func(evt Event) {
		if !relayed[evt.Type] {
			return
		}
		if err := s.publish(evt); err != nil && s.log != nil {
			s.log.Warnw("pubsub relay failed", "eventType", evt.Type, "error", err)
		}
	}
}

func (s *PubsubSink) publish(evt Event) error {
	msg := PubsubMessage{
		ProjectID:  s.projectID,
		DisplayID:  s.displayID,
		PlayerName: s.playerName,
		Topic:      s.topicID,
		EventType:  evt.Type,
		LayoutID:   evt.LayoutID,
		Reason:     evt.Reason,
	}
	if evt.Err != nil {
		msg.Error = evt.Err.Error()
	}

	ctx := context.Background()
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{Data: b})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub: result.Get: %w", err)
	}
	if s.log != nil {
		s.log.Debugw("published event", "eventType", evt.Type, "messageID", id)
	}
	return nil
}
