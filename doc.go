// Pin a native setter to an externally controlled value
//
// timepin is loaded into a host process that embeds the IL2CPP runtime. It
// waits for the runtime's module to be mapped, resolves a setter through the
// runtime's name lookup callback (il2cpp_resolve_icall by default), patches
// the setter's entry so every call lands in a replacement, and keeps a
// trampoline to the original body. The replacement ignores the caller's
// argument and forwards the override value instead.
//
// Limitations:
//   - Only supports amd64 and arm64 on Linux and Android
//   - One hook per process, never removed
//   - The module is looked up once after the settle delay. A module loaded
//     later is never hooked.
//   - Prologues with conditional branches or literal loads in the patch
//     window can't be relocated and are refused.
package timepin
