package main

import (
	"encoding/json"
	"fmt"
	"net"
)

func ipcCall(req IPCRequest) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath())
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to daemon: %w (is `proxlock daemon` running?)", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.Error != "" {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

func runStatus() error {
	resp, err := ipcCall(IPCRequest{Command: "status"})
	if err != nil {
		return err
	}
	if resp.State == StateDetecting {
		fmt.Println("detecting paired devices...")
		return nil
	}
	if resp.Device == "" {
		fmt.Printf("state: %s\n", resp.State)
		return nil
	}
	fmt.Printf("state: %s\ndevice: %s (%s)\ntimeout: %ds\n", resp.State, resp.Name, resp.Device, resp.Timeout)
	return nil
}

func runDevices() error {
	resp, err := ipcCall(IPCRequest{Command: "devices"})
	if err != nil {
		return err
	}
	if resp.State == StateDetecting {
		fmt.Println("detecting paired devices...")
		return nil
	}
	if len(resp.Devices) == 0 {
		fmt.Println("no paired devices found")
		return nil
	}
	for i, dev := range resp.Devices {
		marker := " "
		if dev.Selected {
			marker = "*"
		}
		conn := "disconnected"
		if dev.Connected {
			conn = "connected"
		}
		fmt.Printf("%s %d) %s  %s  [%s]\n", marker, i, dev.Address, dev.Name, conn)
	}
	return nil
}

func runSelect(device string) error {
	resp, err := ipcCall(IPCRequest{Command: "select", Device: device})
	if err != nil {
		return err
	}
	fmt.Printf("monitoring %s (%s)\n", resp.Name, resp.Device)
	return nil
}

func runDisable() error {
	if _, err := ipcCall(IPCRequest{Command: "disable"}); err != nil {
		return err
	}
	fmt.Println("monitoring disabled")
	return nil
}

func runTimeout(seconds int) error {
	resp, err := ipcCall(IPCRequest{Command: "timeout", Seconds: seconds})
	if err != nil {
		return err
	}
	fmt.Printf("confirmation timeout set to %ds\n", resp.Timeout)
	return nil
}

func runQuit() error {
	if _, err := ipcCall(IPCRequest{Command: "quit"}); err != nil {
		return err
	}
	fmt.Println("daemon shutting down")
	return nil
}
