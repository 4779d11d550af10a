// Package sms sends text messages.
//
// TwilioSender delivers through Twilio; LogSender writes messages to the
// logger for local development. New selects one from Config.Provider
// (SMS_PROVIDER). Normalize converts user-entered numbers to E.164 with
// nyaruka/phonenumbers and should run before Send.
package sms
