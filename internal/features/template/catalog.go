package template

import "go-leadflow/internal/features/rule"

// BuiltinCatalog is the template library loaded by the seeder.
func BuiltinCatalog() []AutomationTemplate {
	return []AutomationTemplate{
		{
			Name:        "Boas-vindas a novo lead",
			Description: "Cria uma tarefa de ligação e envia um e-mail assim que o lead entra",
			Icon:        "user-plus",
			Category:    "onboarding",
			Rule: RuleSpec{
				Trigger: rule.TriggerLeadCreated,
				Actions: []rule.Action{
					{
						Type:   rule.ActionCreateTask,
						Config: map[string]interface{}{"title": "Ligar para {{name}}", "description": "Primeiro contato"},
					},
					{
						Type:         rule.ActionSendEmail,
						Config:       map[string]interface{}{"subject": "Bem-vindo, {{name}}!", "body": "Obrigado pelo interesse."},
						DelayMinutes: 15,
					},
				},
			},
		},
		{
			Name:        "Follow-up sem resposta",
			Description: "Mensagem de WhatsApp e tag quando o lead fica sem resposta",
			Icon:        "message-circle",
			Category:    "follow-up",
			Rule: RuleSpec{
				Trigger: rule.TriggerNoResponse,
				Actions: []rule.Action{
					{
						Type:   rule.ActionSendWhatsApp,
						Config: map[string]interface{}{"message": "Olá {{name}}, ainda podemos ajudar?"},
					},
					{
						Type:         rule.ActionAddTag,
						Config:       map[string]interface{}{"tag": "follow-up"},
						DelayMinutes: 60,
					},
				},
			},
		},
		{
			Name:        "Lead quente",
			Description: "Prioriza leads que cruzam o limiar de score",
			Icon:        "flame",
			Category:    "scoring",
			Rule: RuleSpec{
				Trigger: rule.TriggerScoreThreshold,
				Conditions: []rule.Condition{
					{Field: "score", Operator: rule.OperatorGreaterThan, Value: 80},
				},
				Actions: []rule.Action{
					{
						Type:   rule.ActionUpdateLeadStatus,
						Config: map[string]interface{}{"status": "hot"},
					},
					{
						Type:   rule.ActionCreateNotification,
						Config: map[string]interface{}{"message": "Lead {{name}} passou de 80 pontos"},
					},
				},
			},
		},
		{
			Name:        "Formulário enviado",
			Description: "Pontua o lead e agenda tarefa quando um formulário chega",
			Icon:        "clipboard",
			Category:    "capture",
			Rule: RuleSpec{
				Trigger: rule.TriggerFormSubmitted,
				Actions: []rule.Action{
					{
						Type:   rule.ActionUpdateScore,
						Config: map[string]interface{}{"points": 10},
					},
					{
						Type:         rule.ActionCreateTask,
						Config:       map[string]interface{}{"title": "Revisar formulário de {{name}}"},
						DelayMinutes: 30,
					},
				},
			},
		},
	}
}
