// Package protocol defines the wire contract: the inbound message envelope,
// the closed registries of message and event types, and frame limits.
package protocol

import "encoding/json"

// MaxFrameSize caps inbound frames.
const MaxFrameSize = 64 * 1024

// Envelope is the shape of every inbound frame.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessageType names an inbound operation. The registry is closed: adding a
// type means one constant here plus one handler arm.
type MessageType string

const (
	MsgCreate             MessageType = "create"
	MsgJoin               MessageType = "join"
	MsgStart              MessageType = "start"
	MsgPause              MessageType = "pause"
	MsgReset              MessageType = "reset"
	MsgSwitch             MessageType = "switch"
	MsgClaim              MessageType = "claim"
	MsgUnclaim            MessageType = "unclaim"
	MsgReconnect          MessageType = "reconnect"
	MsgUpdatePlayer       MessageType = "updatePlayer"
	MsgAddPenalty         MessageType = "addPenalty"
	MsgEliminate          MessageType = "eliminate"
	MsgUpdateSettings     MessageType = "updateSettings"
	MsgEndGame            MessageType = "endGame"
	MsgRenameGame         MessageType = "renameGame"
	MsgInterrupt          MessageType = "interrupt"
	MsgPassPriority       MessageType = "passPriority"
	MsgRandomStartPlayer  MessageType = "randomStartPlayer"
	MsgRollDice           MessageType = "rollDice"
	MsgRollPlayOrder      MessageType = "rollPlayOrder"
	MsgAdminRevive        MessageType = "adminRevive"
	MsgAdminKick          MessageType = "adminKick"
	MsgAdminAddTime       MessageType = "adminAddTime"
	MsgTimeoutChoice      MessageType = "timeoutChoice"
	MsgToggleTarget       MessageType = "toggleTarget"
	MsgConfirmTargets     MessageType = "confirmTargets"
	MsgPassTargetPriority MessageType = "passTargetPriority"
	MsgCancelTargeting    MessageType = "cancelTargeting"
	MsgFeedback           MessageType = "feedback"
	MsgLoadFeedbacks      MessageType = "loadFeedbacks"
	MsgUpdateFeedback     MessageType = "updateFeedback"
	MsgDeleteFeedback     MessageType = "deleteFeedback"
)

// knownTypes is the closed inbound registry.
var knownTypes = map[MessageType]bool{
	MsgCreate: true, MsgJoin: true, MsgStart: true, MsgPause: true,
	MsgReset: true, MsgSwitch: true, MsgClaim: true, MsgUnclaim: true,
	MsgReconnect: true, MsgUpdatePlayer: true, MsgAddPenalty: true,
	MsgEliminate: true, MsgUpdateSettings: true, MsgEndGame: true,
	MsgRenameGame: true, MsgInterrupt: true, MsgPassPriority: true,
	MsgRandomStartPlayer: true, MsgRollDice: true, MsgRollPlayOrder: true,
	MsgAdminRevive: true, MsgAdminKick: true, MsgAdminAddTime: true,
	MsgTimeoutChoice: true, MsgToggleTarget: true, MsgConfirmTargets: true,
	MsgPassTargetPriority: true, MsgCancelTargeting: true,
	MsgFeedback: true, MsgLoadFeedbacks: true, MsgUpdateFeedback: true,
	MsgDeleteFeedback: true,
}

// Known reports whether t is in the closed inbound registry.
func Known(t MessageType) bool {
	return knownTypes[t]
}

// EventType names an outbound event.
type EventType string

const (
	EvClientID             EventType = "clientId"
	EvState                EventType = "state"
	EvTick                 EventType = "tick"
	EvWarning              EventType = "warning"
	EvTimeout              EventType = "timeout"
	EvClaimed              EventType = "claimed"
	EvReconnected          EventType = "reconnected"
	EvError                EventType = "error"
	EvGameEnded            EventType = "gameEnded"
	EvGameRenamed          EventType = "gameRenamed"
	EvRandomPlayerSelected EventType = "randomPlayerSelected"
	EvDiceRolled           EventType = "diceRolled"
	EvPlayOrderRolled      EventType = "playOrderRolled"
	EvKicked               EventType = "kicked"
	EvTargetingUpdated     EventType = "targetingUpdated"
	EvTargetingStarted     EventType = "targetingStarted"
	EvTargetingComplete    EventType = "targetingComplete"
	EvTargetingCanceled    EventType = "targetingCanceled"
	EvPriorityPassed       EventType = "priorityPassed"
	EvFeedbackSubmitted    EventType = "feedbackSubmitted"
	EvFeedbackList         EventType = "feedbackList"
	EvFeedbackUpdated      EventType = "feedbackUpdated"
	EvFeedbackDeleted      EventType = "feedbackDeleted"
)

// Event is the shape of every outbound frame.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Encode serializes an outbound event once, for fan-out to many subscribers.
func Encode(t EventType, data interface{}) ([]byte, error) {
	return json.Marshal(Event{Type: t, Data: data})
}
