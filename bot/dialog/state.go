package dialog

// State identifies which screen or flow a chat is currently in. Labels are
// persisted in the session store; an unknown or empty label resolves to
// StateStart, never to an error.
type State string

const (
	// StateStart renders the welcome screen on any input.
	StateStart State = "start"
	// StateMainMenu is the welcome screen with event shortcuts.
	StateMainMenu State = "main_menu"
	// StateEventMenu is a single event page.
	StateEventMenu State = "event_menu"
	// StateFutureEvents lists upcoming events.
	StateFutureEvents State = "future_events"
	// StateSpeechList shows the talks of an event.
	StateSpeechList State = "speech_list"
	// StateEditEvent is the organizer edit menu.
	StateEditEvent State = "edit_event"
	// StateEventTitle awaits a new event title as free text.
	StateEventTitle State = "event_title"
	// StateEventText awaits a new event description as free text.
	StateEventText State = "event_text"
	// StateQuestion awaits a question for the current speaker.
	StateQuestion State = "question"

	// Registration wizard steps, chained in fixed order.
	StateFullname State = "fullname"
	StateAge      State = "age"
	StateActivity State = "activity"
	StateStack    State = "stack"
	StateHobby    State = "hobby"
	StatePurpose  State = "purpose"

	// StateMeeting cycles through networking candidates.
	StateMeeting State = "meeting"
)

// Literal callback tokens recognized by the menu handlers.
const (
	cmdBack         = "back"
	cmdFutureEvents = "future_events"
	cmdCreateEvent  = "create_event"
	cmdSpeechList   = "speech_list"
	cmdRegister     = "register"
	cmdAsk          = "ask"
	cmdMeet         = "meet"
	cmdEdit         = "edit"
	cmdDonate       = "donate"
	cmdEditTitle    = "title"
	cmdEditText     = "text"
	cmdDelete       = "delete"
	cmdNext         = "next"
)
