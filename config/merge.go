package config

// mergeConfigs merges override configuration into base. Scalars replace when
// set, slices replace when non-empty, maps merge key by key.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Host = mergeHost(result.Host, override.Host)
	result.Client = mergeClient(result.Client, override.Client)
	result.Search = mergeSearch(result.Search, override.Search)

	if override.Batch.VerifyTimeout != 0 {
		result.Batch.VerifyTimeout = override.Batch.VerifyTimeout
	}
	if override.Batch.VerifyInterval != 0 {
		result.Batch.VerifyInterval = override.Batch.VerifyInterval
	}

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for key, value := range result.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeHost(base, override HostConfig) HostConfig {
	if override.Listen != "" {
		base.Listen = override.Listen
	}
	if override.HTTPAddr != "" {
		base.HTTPAddr = override.HTTPAddr
	}
	if override.StatusInterval != 0 {
		base.StatusInterval = override.StatusInterval
	}
	if override.Tick != 0 {
		base.Tick = override.Tick
	}
	if override.DispatchTimeout != 0 {
		base.DispatchTimeout = override.DispatchTimeout
	}
	if override.MaxFrameBytes != 0 {
		base.MaxFrameBytes = override.MaxFrameBytes
	}
	if override.AcceptRate != 0 {
		base.AcceptRate = override.AcceptRate
	}
	return base
}

func mergeClient(base, override ClientConfig) ClientConfig {
	if override.Address != "" {
		base.Address = override.Address
	}
	if override.DialTimeout != 0 {
		base.DialTimeout = override.DialTimeout
	}
	if override.DefaultTimeout != 0 {
		base.DefaultTimeout = override.DefaultTimeout
	}
	if len(override.CommandTimeouts) > 0 {
		merged := make(map[string]Duration, len(base.CommandTimeouts)+len(override.CommandTimeouts))
		for k, v := range base.CommandTimeouts {
			merged[k] = v
		}
		for k, v := range override.CommandTimeouts {
			merged[k] = v
		}
		base.CommandTimeouts = merged
	}
	if override.SettleDelay != 0 {
		base.SettleDelay = override.SettleDelay
	}
	if len(override.ModifyingCommands) > 0 {
		base.ModifyingCommands = override.ModifyingCommands
	}
	if override.MonitorInterval != 0 {
		base.MonitorInterval = override.MonitorInterval
	}
	return base
}

func mergeSearch(base, override SearchConfig) SearchConfig {
	if len(override.StripWords) > 0 {
		base.StripWords = override.StripWords
	}
	if len(override.Aliases) > 0 {
		merged := make(map[string]string, len(base.Aliases)+len(override.Aliases))
		for k, v := range base.Aliases {
			merged[k] = v
		}
		for k, v := range override.Aliases {
			merged[k] = v
		}
		base.Aliases = merged
	}
	if len(override.DeviceRoots) > 0 {
		base.DeviceRoots = override.DeviceRoots
	}
	if len(override.SampleRoots) > 0 {
		base.SampleRoots = override.SampleRoots
	}
	return base
}
