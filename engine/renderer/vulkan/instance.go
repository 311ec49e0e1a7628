package vulkan

import (
	"errors"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbase/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// WindowSystem is the part of the platform layer the instance and the
// surface need.
type WindowSystem interface {
	InstanceProcAddress() unsafe.Pointer
	GetRequiredExtensionNames() []string
	CreateSurface(instance interface{}) (uintptr, error)
}

// InstanceCreate loads the Vulkan entry points and creates the instance.
// When validation is requested but the layer is missing, the instance is
// created without it.
func InstanceCreate(context *VulkanContext, ws WindowSystem, appName string, validation bool) error {
	procAddr := ws.InstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("vkbase"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Generic surface extension plus whatever the window system asks for.
	requiredExtensions := appendUnique([]string{vk.KhrSurfaceExtensionName}, ws.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = appendUnique(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if validation {
		available, err := instanceLayerNames()
		if err != nil {
			return err
		}
		if missing := missingNames([]string{validationLayerName}, available); len(missing) > 0 {
			core.LogWarn("Validation requested but layers %v are missing, continuing without them.", missing)
			validation = false
		} else {
			layers = []string{validationLayerName}
			requiredExtensions = appendUnique(requiredExtensions, vk.ExtDebugReportExtensionName)
			core.LogInfo("Validation layers enabled.")
		}
	}

	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		return vkError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		vk.DestroyInstance(instance, context.Allocator)
		return err
	}
	context.Instance = instance
	core.LogInfo("Vulkan Instance created.")

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			// not fatal, the instance itself is usable
			core.LogWarn("vkCreateDebugReportCallback failed with %s", VulkanResultString(res, true))
		} else {
			context.debugCallback = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return nil
}

func InstanceDestroy(context *VulkanContext) {
	if context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

// SurfaceCreate asks the window system for a presentation surface.
func SurfaceCreate(context *VulkanContext, ws WindowSystem) error {
	core.LogDebug("Creating Vulkan surface...")
	ptr, err := ws.CreateSurface(context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface: %s", err)
		return err
	}
	context.Surface = vk.SurfaceFromPointer(ptr)
	core.LogDebug("Vulkan surface created.")
	return nil
}

func SurfaceDestroy(context *VulkanContext) {
	if context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}
}

func instanceLayerNames() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, vkError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return nil, vkError("vkEnumerateInstanceLayerProperties", res)
	}
	names := make([]string, 0, count)
	for i := range layers[:count] {
		layers[i].Deref()
		names = append(names, cString(layers[i].LayerName[:]))
	}
	return names, nil
}

// missingNames returns the entries of required that are not in available.
func missingNames(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		if len(missingNames([]string{name}, list)) == 1 {
			list = append(list, name)
		}
	}
	return list
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
