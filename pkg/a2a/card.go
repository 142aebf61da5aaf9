package a2a

import (
	"fmt"

	"github.com/spf13/viper"
)

// AgentCapabilities describes the capabilities of an agent.
type AgentCapabilities struct {
	// Streaming indicates if the agent supports streaming responses
	Streaming bool `json:"streaming,omitempty"`
	// PushNotifications indicates if the agent supports push notification mechanisms
	PushNotifications bool `json:"pushNotifications,omitempty"`
	// StateTransitionHistory indicates if the agent supports providing state transition history
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentProvider represents the provider or organization behind an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentSkill defines a specific skill or capability offered by an agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard represents the discovery metadata for an agent.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Provider           *AgentProvider    `json:"provider,omitempty"`
	Version            string            `json:"version"`
	DocumentationURL   string            `json:"documentationUrl,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills"`
}

// NewAgentCardFromConfig assembles a card from the viper config tree under
// the given key.
func NewAgentCardFromConfig(key string) *AgentCard {
	v := viper.GetViper()
	prefix := fmt.Sprintf("agent.%s", key)

	skillKeys := v.GetStringSlice(prefix + ".skills")
	skills := make([]AgentSkill, 0, len(skillKeys))
	for _, sk := range skillKeys {
		skills = append(skills, AgentSkill{
			ID:          sk,
			Name:        v.GetString(fmt.Sprintf("skill.%s.name", sk)),
			Description: v.GetString(fmt.Sprintf("skill.%s.description", sk)),
			Tags:        v.GetStringSlice(fmt.Sprintf("skill.%s.tags", sk)),
		})
	}

	return &AgentCard{
		Name:        v.GetString(prefix + ".name"),
		Description: v.GetString(prefix + ".description"),
		URL:         v.GetString(prefix + ".url"),
		Version:     v.GetString(prefix + ".version"),
		Capabilities: AgentCapabilities{
			Streaming:         v.GetBool(prefix + ".capabilities.streaming"),
			PushNotifications: v.GetBool(prefix + ".capabilities.push_notifications"),
		},
		DefaultInputModes:  v.GetStringSlice(prefix + ".input_modes"),
		DefaultOutputModes: v.GetStringSlice(prefix + ".output_modes"),
		Skills:             skills,
	}
}
