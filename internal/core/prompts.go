package core

// SummaryInstruction is the system instruction shared by generation and fine-tuning,
// so a fine-tuned model sees the same framing at inference time.
const SummaryInstruction = "You summarize emails. Reply with a short plain-text TL;DR of the email content you are given. Do not add greetings, commentary or formatting."

// SummaryPromptFormat wraps the email text in the user turn
const SummaryPromptFormat = "Summarize the following emails:\n\n%s"
