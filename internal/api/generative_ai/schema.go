package generativeAI

import "google.golang.org/genai"

// ItinerarySchema is the response schema for itinerary generation. With
// withReply set it also carries the assistant's conversational reply.
func ItinerarySchema(withReply bool) *genai.Schema {
	activity := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"start_time":     {Type: genai.TypeString, Description: "24h local start time, HH:MM"},
			"end_time":       {Type: genai.TypeString, Description: "24h local end time, HH:MM, after start_time"},
			"title":          {Type: genai.TypeString},
			"description":    {Type: genai.TypeString},
			"location":       {Type: genai.TypeString},
			"estimated_cost": {Type: genai.TypeNumber, Description: "Cost for the whole party in the trip currency"},
		},
		Required:         []string{"start_time", "end_time", "title"},
		PropertyOrdering: []string{"start_time", "end_time", "title", "description", "location", "estimated_cost"},
	}
	day := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"day":        {Type: genai.TypeInteger, Description: "1-based day number"},
			"date":       {Type: genai.TypeString, Description: "Calendar date, YYYY-MM-DD"},
			"theme":      {Type: genai.TypeString},
			"activities": {Type: genai.TypeArray, Items: activity},
		},
		Required:         []string{"day", "date", "activities"},
		PropertyOrdering: []string{"day", "date", "theme", "activities"},
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":              {Type: genai.TypeString},
			"selected_flight_id":   {Type: genai.TypeString, Description: "id of the chosen flight option, empty if none fits"},
			"selected_hotel_id":    {Type: genai.TypeString, Description: "id of the chosen hotel option, empty if none fits"},
			"estimated_total_cost": {Type: genai.TypeNumber},
			"days":                 {Type: genai.TypeArray, Items: day},
		},
		Required:         []string{"summary", "days"},
		PropertyOrdering: []string{"summary", "selected_flight_id", "selected_hotel_id", "estimated_total_cost", "days"},
	}
	if withReply {
		schema.Properties["reply"] = &genai.Schema{Type: genai.TypeString, Description: "Answer to the user's latest message"}
		schema.Required = append(schema.Required, "reply")
		schema.PropertyOrdering = append([]string{"reply"}, schema.PropertyOrdering...)
	}
	return schema
}
