package service

import (
	"ragone-be/internal/dto"
	"ragone-be/pkg/character/profile"
)

// resolveTemplateConfig applies the request on top of its preset and
// validates the result. A nil request means "use the configured layout".
func resolveTemplateConfig(req *dto.TemplateConfigRequest) (*profile.TemplateConfig, error) {
	if req == nil {
		return nil, nil
	}

	preset := profile.PresetStandard
	if req.TemplateType != "" {
		preset = profile.Preset(req.TemplateType)
	}
	cfg := profile.PresetConfig(preset)
	// PresetConfig maps unknown names to standard; keep the name so Validate sees it
	cfg.Preset = preset

	setBool(&cfg.Enabled, req.Enabled)
	setBool(&cfg.IncludeBasicInfo, req.IncludeBasicInfo)
	setBool(&cfg.IncludePersonalityTraits, req.IncludePersonalityTraits)
	setBool(&cfg.IncludeWorkflow, req.IncludeWorkflow)
	setBool(&cfg.IncludeSpeakingStyle, req.IncludeSpeakingStyle)
	setBool(&cfg.IncludeBackgroundSetting, req.IncludeBackgroundSetting)
	setBool(&cfg.IncludeInteractionRules, req.IncludeInteractionRules)
	setBool(&cfg.IncludeExamples, req.IncludeExamples)
	if req.ExampleCount != nil {
		cfg.ExampleCount = *req.ExampleCount
	}
	if req.CustomPrefix != nil {
		cfg.CustomPrefix = *req.CustomPrefix
	}
	if req.CustomSuffix != nil {
		cfg.CustomSuffix = *req.CustomSuffix
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func toTemplateConfigResponse(cfg profile.TemplateConfig) *dto.TemplateConfigResponse {
	return &dto.TemplateConfigResponse{
		TemplateType:             string(cfg.Preset),
		Enabled:                  cfg.Enabled,
		IncludeBasicInfo:         cfg.IncludeBasicInfo,
		IncludePersonalityTraits: cfg.IncludePersonalityTraits,
		IncludeWorkflow:          cfg.IncludeWorkflow,
		IncludeSpeakingStyle:     cfg.IncludeSpeakingStyle,
		IncludeBackgroundSetting: cfg.IncludeBackgroundSetting,
		IncludeInteractionRules:  cfg.IncludeInteractionRules,
		IncludeExamples:          cfg.IncludeExamples,
		ExampleCount:             cfg.ExampleCount,
		CustomPrefix:             cfg.CustomPrefix,
		CustomSuffix:             cfg.CustomSuffix,
	}
}
