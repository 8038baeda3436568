package whatsapp

import "strings"

// TextMessage represents a simple text message payload
type TextMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

// TextBody is the body of a text message
type TextBody struct {
	Body string `json:"body"`
}

// ImageMessage represents an image-by-link message with a caption
type ImageMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Image            ImageLink `json:"image"`
}

// ImageLink points WhatsApp at a publicly reachable image
type ImageLink struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// InteractiveMessage represents an interactive button or list message
type InteractiveMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Interactive      Interactive `json:"interactive"`
}

// Interactive is the interactive part of a message
type Interactive struct {
	Type   string             `json:"type"` // "button" or "list"
	Header *InteractiveHeader `json:"header,omitempty"`
	Body   TextBody           `json:"body"`
	Footer *TextBody          `json:"footer,omitempty"`
	Action Action             `json:"action"`
}

// InteractiveHeader is the optional text header of an interactive message
type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Action carries either reply buttons or list sections
type Action struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []ReplyButton `json:"buttons,omitempty"`
	Sections []Section     `json:"sections,omitempty"`
}

// ReplyButton is a quick reply button
type ReplyButton struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

// Reply is the id/title pair of a reply button
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Section is a titled group of list rows
type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

// Row is one list option
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// WebhookPayload represents the incoming webhook from WhatsApp
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
					Button struct {
						Payload string `json:"payload"`
						Text    string `json:"text"`
					} `json:"button,omitempty"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply,omitempty"`
						ListReply struct {
							ID          string `json:"id"`
							Title       string `json:"title"`
							Description string `json:"description"`
						} `json:"list_reply,omitempty"`
					} `json:"interactive,omitempty"`
				} `json:"messages"`
			} `json:"value"`
			Field string `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is one chat event reduced to what the bot routes on
type InboundMessage struct {
	ID     string
	Sender string
	// Token is the button or list-row id when the customer tapped one,
	// otherwise the trimmed message text.
	Token string
	// Text is the raw text body; empty for taps.
	Text string
}

// Messages flattens the payload into inbound messages in delivery order.
// Status callbacks and unsupported message types are skipped.
func (p *WebhookPayload) Messages() []InboundMessage {
	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				in := InboundMessage{ID: msg.ID, Sender: msg.From}
				switch msg.Type {
				case "text":
					in.Text = msg.Text.Body
					in.Token = strings.TrimSpace(msg.Text.Body)
				case "interactive":
					switch msg.Interactive.Type {
					case "button_reply":
						in.Token = msg.Interactive.ButtonReply.ID
					case "list_reply":
						in.Token = msg.Interactive.ListReply.ID
					}
				case "button":
					in.Token = msg.Button.Payload
				}
				if in.Sender == "" || (in.Token == "" && in.Text == "") {
					continue
				}
				out = append(out, in)
			}
		}
	}
	return out
}
