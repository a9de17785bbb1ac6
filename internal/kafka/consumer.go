package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"alerting-service/internal/config"
	"alerting-service/internal/db"
	"alerting-service/internal/engine"
	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Fact is one monitoring observation published by the upstream collectors.
type Fact struct {
	RuleCode   string                 `json:"rule_code"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	TargetName string                 `json:"target_name"`
	Data       map[string]interface{} `json:"data"`
	Context    map[string]interface{} `json:"context"`
}

// RuleSource looks up the rule a fact refers to. *db.DB implements it.
type RuleSource interface {
	GetEnabledRule(ctx context.Context, code string) (models.Rule, error)
}

// Consumer reads monitoring facts and feeds them into the rule engine.
type Consumer struct {
	reader *kafka.Reader
	rules  RuleSource
	engine *engine.Engine
	logger *logging.Logger
}

func NewConsumer(cfg config.Config, rules RuleSource, eng *engine.Engine, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, rules: rules, engine: eng, logger: logger}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Infof("kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Infof("kafka consumer stopped")
				return
			}
			c.logger.Errorf("read message failed: %v", err)
			continue
		}
		c.handle(ctx, msg.Value)
	}
}

func (c *Consumer) handle(ctx context.Context, raw []byte) {
	var fact Fact
	if err := json.Unmarshal(raw, &fact); err != nil {
		c.logger.Errorf("unmarshal fact failed: %v", err)
		return
	}
	if fact.RuleCode == "" || fact.TargetType == "" || fact.TargetID == "" {
		c.logger.Errorf("invalid fact: missing rule_code, target_type, or target_id")
		return
	}

	rule, err := c.rules.GetEnabledRule(ctx, fact.RuleCode)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.logger.Warnf("fact for unknown or disabled rule %q, skipping", fact.RuleCode)
			return
		}
		c.logger.Errorf("rule lookup for %q failed: %v", fact.RuleCode, err)
		return
	}

	target := models.Target{Type: fact.TargetType, ID: fact.TargetID, Name: fact.TargetName}
	alert, err := c.engine.Evaluate(ctx, rule, target, fact.Data, fact.Context)
	if err != nil {
		c.logger.Errorf("evaluation of rule %q against %s/%s failed: %v",
			rule.Code, target.Type, target.ID, err)
		return
	}
	if alert != nil {
		c.logger.Infof("fact produced alert %s", alert.Number)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("kafka reader close failed: %v", err)
	}
}
