package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/client"
)

var (
	serverURLFlag string
	taskIDFlag    string
	streamFlag    bool

	sendCmd = &cobra.Command{
		Use:   "send [text...]",
		Short: "Send a message to an A2A agent",
		Long:  longSend,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(serverURLFlag)

			msg := a2a.NewTextMessage(a2a.RoleUser, strings.Join(args, " "))
			msg.TaskID = taskIDFlag

			params := &a2a.MessageSendParams{Message: *msg}

			if streamFlag {
				stream, err := c.SendStreamingMessage(cmd.Context(), params)

				if err != nil {
					return err
				}

				for item := range stream {
					if item.Err != nil {
						return item.Err
					}

					if err = printJSON(item.Event); err != nil {
						return err
					}
				}

				return nil
			}

			result, err := c.SendMessage(cmd.Context(), params)

			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}
)

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&serverURLFlag, "server", "s", "http://localhost:3210", "Agent server base URL")
	sendCmd.Flags().StringVarP(&taskIDFlag, "task", "t", "", "Continue an existing task")
	sendCmd.Flags().BoolVar(&streamFlag, "stream", false, "Stream events instead of waiting for the result")
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

var longSend = `
Send a message to a running A2A agent and print the result.

Examples:
  # Ask the local echo agent
  a2a-core send "hello there"

  # Follow the task lifecycle as a stream of events
  a2a-core send --stream "do the thing"

  # Continue an existing task
  a2a-core send --task 0b19… "one more thing"
`
