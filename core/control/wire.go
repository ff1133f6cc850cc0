package control

import "time"

// SlotMessage is the wire form of one decision. Codes are sent as numbers.
type SlotMessage struct {
	Slot         int     `json:"slot"`
	Start        int64   `json:"start"`
	Duration     int64   `json:"duration"`
	Strategy     int     `json:"strategy"`
	Restrictions int     `json:"restrictions"`
	FeedIn       int     `json:"feed_in"`
	Flags        uint32  `json:"flags"`
	SoCTargetWh  float64 `json:"soc_target_wh"`
}

// ScheduleMessage is the payload published for a Schedule.
type ScheduleMessage struct {
	MessageID string        `json:"message_id"`
	RunID     string        `json:"run_id"`
	Timestamp int64         `json:"timestamp"`
	Slots     []SlotMessage `json:"slots"`
}

// Message converts s to its wire form. Start is in unix seconds and
// Duration in seconds.
func (s Schedule) Message(messageID string) ScheduleMessage {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	msg := ScheduleMessage{
		MessageID: messageID,
		RunID:     s.RunID,
		Timestamp: created.UnixMilli(),
		Slots:     make([]SlotMessage, len(s.Decisions)),
	}
	for i, d := range s.Decisions {
		msg.Slots[i] = SlotMessage{
			Slot:         d.Slot,
			Start:        d.Start.Unix(),
			Duration:     int64(d.Duration / time.Second),
			Strategy:     int(d.Strategy),
			Restrictions: int(d.Restrictions),
			FeedIn:       int(d.FeedIn),
			Flags:        d.Flags,
			SoCTargetWh:  d.SoCTargetWh,
		}
	}
	return msg
}
